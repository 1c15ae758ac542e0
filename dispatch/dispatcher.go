package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"nfcplay/cards"
)

// Event is a single card reading. An empty UID means no card is present.
type Event struct {
	UID string
	At  time.Time
}

// Source produces card readings. reader.UIDReader satisfies it.
type Source interface {
	// Read blocks until a reading is available. ("", nil) means no card.
	Read(ctx context.Context) (string, error)
}

// Outcome reports what Dispatch did with an event.
type Outcome int

const (
	Ignored     Outcome = iota // removal or debounced repeat
	Unknown                    // UID not in the table
	Started                    // command started
	StartFailed                // command could not be started
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Unknown:
		return "unknown"
	case Started:
		return "started"
	case StartFailed:
		return "start-failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Hooks are optional callbacks fired from Dispatch.
type Hooks struct {
	OnUnknown     func(ev Event)
	OnStart       func(ev Event, entry cards.Entry)
	OnStartFailed func(ev Event, entry cards.Entry, err error)
}

// Dispatcher looks card readings up in a table and hands matches to a Runner.
type Dispatcher struct {
	table    atomic.Pointer[cards.Table]
	runner   Runner
	debounce *Debouncer
	hooks    Hooks
}

// New creates a dispatcher. A nil debouncer disables debouncing.
func New(table *cards.Table, runner Runner, debounce *Debouncer, hooks Hooks) *Dispatcher {
	d := &Dispatcher{
		runner:   runner,
		debounce: debounce,
		hooks:    hooks,
	}
	d.table.Store(table)
	return d
}

// Table returns the table currently in use.
func (d *Dispatcher) Table() *cards.Table {
	return d.table.Load()
}

// SetTable swaps in a freshly loaded table. Safe to call from any goroutine.
func (d *Dispatcher) SetTable(t *cards.Table) {
	d.table.Store(t)
}

// Dispatch handles one reading from the card reader.
func (d *Dispatcher) Dispatch(ev Event) Outcome {
	if d.debounce != nil {
		if !d.debounce.Observe(ev.UID) {
			return Ignored
		}
	} else if ev.UID == "" {
		return Ignored
	}

	fmt.Printf("Card read: %s\n", ev.UID)
	return d.trigger(ev)
}

// Trigger runs the command for uid without consulting the debouncer.
func (d *Dispatcher) Trigger(uid string) Outcome {
	if uid == "" {
		return Ignored
	}
	return d.trigger(Event{UID: uid, At: time.Now()})
}

func (d *Dispatcher) trigger(ev Event) Outcome {
	entry, ok := d.Table().Lookup(ev.UID)
	if !ok {
		fmt.Printf("Card %s not in table\n", ev.UID)
		if d.hooks.OnUnknown != nil {
			d.hooks.OnUnknown(ev)
		}
		return Unknown
	}

	fmt.Printf("Card %s: running command for %s\n", ev.UID, entry.Name)
	if err := d.runner.Start(entry); err != nil {
		log.Printf("Card %s: %v", ev.UID, err)
		if d.hooks.OnStartFailed != nil {
			d.hooks.OnStartFailed(ev, entry, err)
		}
		return StartFailed
	}

	if d.hooks.OnStart != nil {
		d.hooks.OnStart(ev, entry)
	}
	return Started
}

// Run polls src until ctx is cancelled or the source fails. A source error
// is returned to the caller: without a reader there is nothing left to do.
func (d *Dispatcher) Run(ctx context.Context, src Source) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		uid, err := src.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read card: %w", err)
		}

		d.Dispatch(Event{UID: uid, At: time.Now()})
	}
}
