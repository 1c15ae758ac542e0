package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"nfcplay/cards"
	"nfcplay/dispatch"
	"nfcplay/reader"
)

func newEnrollCommand(ctx *commandContext) *cobra.Command {
	var (
		player string
		host   string
		uid    string
		name   string
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "enroll <path>",
		Short: "Bind a card to an album directory",
		Long: "Bind a card to an album directory. For moode the path is relative to\n" +
			"the NAS share on the player; for vlc and mpv it is a local directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if player == "" {
				player = cfg.Player.Type
			}
			if host == "" {
				host = cfg.Player.Host
			}

			entry, err := newEntry(player, host, args[0])
			if err != nil {
				return err
			}
			if name != "" {
				entry.Name = name
			}

			entry.UID = strings.ToUpper(strings.TrimSpace(uid))
			if entry.UID == "" {
				entry.UID, err = readOneCard(cmd, cfg)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			confirm := func(existing cards.Entry) (bool, error) {
				if yes {
					return true, nil
				}
				return askOverwrite(cmd.InOrStdin(), out, existing)
			}

			saved, err := enrollCard(cfg, entry, confirm)
			if err != nil {
				return err
			}
			if !saved {
				fmt.Fprintln(out, "Cancelled, table unchanged")
				return nil
			}
			fmt.Fprintf(out, "Saved %s -> %s\n", entry.UID, entry.Name)
			fmt.Fprintln(out, "Send SIGHUP to a running nfcplay, or publish to "+
				"nfcplay/control/broadcast/cards/reload, to pick it up")
			return nil
		},
	}

	cmd.Flags().StringVar(&player, "player", "", "Player preset: moode, vlc or mpv (default from config, else mpv)")
	cmd.Flags().StringVar(&host, "host", "", "moode host name or IP")
	cmd.Flags().StringVar(&uid, "uid", "", "Card UID; read from the reader when empty")
	cmd.Flags().StringVar(&name, "name", "", "Entry name (default: last path element)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Overwrite an existing card without asking")

	return cmd
}

// playerCommand returns the command tokens that play dir on a player preset.
func playerCommand(player, host, dir string) ([]string, error) {
	switch strings.ToLower(player) {
	case "moode":
		if host == "" {
			return nil, errors.New("moode needs --host")
		}
		rel := strings.Trim(dir, "/")
		return []string{"curl", "-G", "-s", "--data-urlencode",
			"cmd=play_item NAS/" + rel, "http://" + host + "/command/"}, nil
	case "vlc":
		return []string{"cvlc", "--play-and-exit", dir}, nil
	case "mpv", "":
		return []string{"mpv", "--no-video", dir}, nil
	default:
		return nil, fmt.Errorf("unknown player %q (want moode, vlc or mpv)", player)
	}
}

// newEntry builds the table entry for an album path. Local players need the
// directory to exist; moode paths live on the player and are not checked.
func newEntry(player, host, dir string) (cards.Entry, error) {
	var name string
	if strings.EqualFold(player, "moode") {
		name = path.Base(strings.Trim(dir, "/"))
	} else {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return cards.Entry{}, fmt.Errorf("resolve %s: %w", dir, err)
		}
		fi, err := os.Stat(abs)
		if err != nil {
			return cards.Entry{}, fmt.Errorf("album path: %w", err)
		}
		if !fi.IsDir() {
			return cards.Entry{}, fmt.Errorf("album path %s is not a directory", dir)
		}
		dir = abs
		name = filepath.Base(abs)
	}
	if name == "" || name == "." || name == "/" {
		return cards.Entry{}, fmt.Errorf("cannot derive a name from %q", dir)
	}

	command, err := playerCommand(player, host, dir)
	if err != nil {
		return cards.Entry{}, err
	}
	return cards.Entry{Name: name, Command: command}, nil
}

// enrollCard adds entry to the table under the table lock. confirm is asked
// before replacing an existing card; saved is false when it declines.
func enrollCard(cfg *Config, entry cards.Entry, confirm func(existing cards.Entry) (bool, error)) (saved bool, err error) {
	if cards.FormatFor(cfg.Cards) == cards.FormatTOML {
		return false, fmt.Errorf("%s: enroll writes JSON tables only", cfg.Cards)
	}

	lock := flock.New(cfg.LockFile)
	if err := lock.Lock(); err != nil {
		return false, fmt.Errorf("lock %s: %w", cfg.LockFile, err)
	}
	defer lock.Unlock()

	table, err := cards.Load(cfg.Cards)
	if errors.Is(err, fs.ErrNotExist) {
		table, err = cards.New(nil)
	}
	if err != nil {
		return false, err
	}

	if existing, ok := table.Lookup(entry.UID); ok {
		ok, err := confirm(existing)
		if err != nil || !ok {
			return false, err
		}
	}

	table, err = table.With(entry)
	if err != nil {
		return false, err
	}
	if err := cards.Save(cfg.Cards, table); err != nil {
		return false, err
	}
	return true, nil
}

func askOverwrite(in io.Reader, out io.Writer, existing cards.Entry) (bool, error) {
	fmt.Fprintf(out, "Card %s is already bound to %q. Overwrite? [y/N] ", existing.UID, existing.Name)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// readOneCard waits for the next card on the configured reader.
func readOneCard(cmd *cobra.Command, cfg *Config) (string, error) {
	r, err := reader.New(cfg.Reader)
	if err != nil {
		return "", fmt.Errorf("init reader: %w", err)
	}
	defer r.Close()

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintln(cmd.OutOrStdout(), "Put the card on the reader...")
	return firstCard(signalCtx, r)
}

func firstCard(ctx context.Context, src dispatch.Source) (string, error) {
	for {
		uid, err := src.Read(ctx)
		if err != nil {
			return "", fmt.Errorf("read card: %w", err)
		}
		if uid != "" {
			return uid, nil
		}
	}
}
