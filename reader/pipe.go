package reader

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"syscall"
)

// Pipe implements UIDReader on a named pipe, so other programs (or a shell)
// can present cards:
//
//	card <uid>     - card placed on the reader
//	tag <uid>      - alias for card
//	remove         - card taken off the reader
//
// Blank lines and lines starting with # are ignored.
type Pipe struct {
	path     string
	readings chan string
	errs     chan error
	ctx      context.Context
	cancel   context.CancelFunc
	once     sync.Once
}

// NewPipe creates the named pipe at path (replacing any existing file) and
// starts listening on it.
func NewPipe(path string) (*Pipe, error) {
	if path == "" {
		return nil, fmt.Errorf("pipe reader needs a device path")
	}

	os.Remove(path)
	if err := syscall.Mkfifo(path, 0666); err != nil {
		return nil, fmt.Errorf("create named pipe %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipe{
		path:     path,
		readings: make(chan string),
		errs:     make(chan error, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	go p.listen()

	log.Printf("Card pipe listening on %s", path)
	return p, nil
}

func (p *Pipe) listen() {
	for {
		if p.ctx.Err() != nil {
			return
		}

		// Blocks until a writer connects.
		file, err := os.OpenFile(p.path, os.O_RDONLY, 0)
		if err != nil {
			if p.ctx.Err() != nil {
				return
			}
			p.errs <- fmt.Errorf("open pipe %s: %w", p.path, err)
			return
		}

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			uid, ok, err := parsePipeLine(scanner.Text())
			if err != nil {
				log.Printf("Card pipe: %v", err)
				continue
			}
			if !ok {
				continue
			}
			select {
			case p.readings <- uid:
			case <-p.ctx.Done():
				file.Close()
				return
			}
		}
		file.Close()
		// Writer went away; wait for the next one.
	}
}

// parsePipeLine returns the reading carried by one line. ok is false for
// lines that carry nothing.
func parsePipeLine(line string) (uid string, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false, nil
	}

	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case "card", "tag":
		if len(parts) < 2 {
			return "", false, fmt.Errorf("%s requires a uid", parts[0])
		}
		return parts[1], true, nil
	case "remove", "off":
		return "", true, nil
	default:
		return "", false, fmt.Errorf("unknown command: %s", parts[0])
	}
}

// Read implements UIDReader.Read.
func (p *Pipe) Read(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-p.errs:
		return "", err
	case uid := <-p.readings:
		return uid, nil
	}
}

// Close stops listening and removes the pipe.
func (p *Pipe) Close() error {
	var err error
	p.once.Do(func() {
		p.cancel()
		// Unblock a listener stuck in open() waiting for a writer.
		if f, ferr := os.OpenFile(p.path, os.O_WRONLY|syscall.O_NONBLOCK, 0); ferr == nil {
			f.Close()
		}
		err = os.Remove(p.path)
	})
	return err
}
