package dispatch

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"

	"nfcplay/cards"
)

// Runner starts the command attached to a card. Start must not wait for the
// command to finish.
type Runner interface {
	Start(entry cards.Entry) error
}

// Exit describes how a started command finished.
type Exit struct {
	Entry    cards.Entry
	Code     int   // process exit code, -1 if it could not be determined
	Err      error // nil on a zero exit
	Output   string
	Duration time.Duration
}

// ExecRunner runs card commands as child processes. Each process is reaped on
// its own goroutine so the caller can go straight back to polling.
type ExecRunner struct {
	// OnExit, if set, is called from the reaping goroutine.
	OnExit func(Exit)

	// Dir is the working directory for commands; empty means inherit.
	Dir string

	wg sync.WaitGroup
}

// NewExecRunner creates a runner that reports finished commands to onExit.
func NewExecRunner(onExit func(Exit)) *ExecRunner {
	return &ExecRunner{OnExit: onExit}
}

// Start implements Runner.Start.
func (r *ExecRunner) Start(entry cards.Entry) error {
	if len(entry.Command) == 0 {
		return fmt.Errorf("card %s: empty command", entry.UID)
	}

	cmd := exec.Command(entry.Command[0], entry.Command[1:]...)
	cmd.Dir = r.Dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", entry.Command[0], err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := cmd.Wait()

		exit := Exit{
			Entry:    entry,
			Code:     exitCode(cmd, err),
			Err:      err,
			Output:   strings.TrimSpace(out.String()),
			Duration: time.Since(started),
		}
		if exit.Err != nil {
			log.Printf("Command for %s (%s) failed: exit %d: %v", entry.UID, entry.Name, exit.Code, exit.Err)
			if exit.Output != "" {
				log.Printf("Output: %s", exit.Output)
			}
		} else {
			fmt.Printf("Command for %s done: %s\n", entry.UID, strings.Join(entry.Command, " "))
			if exit.Output != "" {
				fmt.Printf("Output: %s\n", exit.Output)
			}
		}
		if r.OnExit != nil {
			r.OnExit(exit)
		}
	}()
	return nil
}

// Wait blocks until every started command has been reaped.
func (r *ExecRunner) Wait() {
	r.wg.Wait()
}

func exitCode(cmd *exec.Cmd, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}
