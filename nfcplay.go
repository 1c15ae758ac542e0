package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
)

var myBuild string

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "nfcplay",
		Short:         "Play music by putting cards on an RFID reader",
		Version:       buildID(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, ctx)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "cfg", defaultConfigFile, "Config file")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newDetectCommand(ctx))
	rootCmd.AddCommand(newEnrollCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newCoverCommand())

	return rootCmd
}

func buildID() string {
	if myBuild == "" {
		return "dev"
	}
	return myBuild
}

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads the config once. The default file may be missing; one
// named with --cfg may not.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(*c.configFlag)
		if path == "" {
			path = defaultConfigFile
		}
		required := cmd.Flags().Changed("cfg")
		c.config, c.configErr = LoadConfig(path, required)
	})
	return c.config, c.configErr
}
