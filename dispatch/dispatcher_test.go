package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfcplay/cards"
)

type fakeRunner struct {
	mu      sync.Mutex
	started []cards.Entry
	fail    map[string]error
}

func (f *fakeRunner) Start(entry cards.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[entry.UID]; err != nil {
		return err
	}
	f.started = append(f.started, entry)
	return nil
}

func (f *fakeRunner) uids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.started {
		out = append(out, e.UID)
	}
	return out
}

var errSourceDone = errors.New("reader unplugged")

type fakeSource struct {
	readings []string
}

func (s *fakeSource) Read(ctx context.Context) (string, error) {
	if len(s.readings) == 0 {
		return "", errSourceDone
	}
	uid := s.readings[0]
	s.readings = s.readings[1:]
	return uid, nil
}

func testTable(t *testing.T) *cards.Table {
	t.Helper()
	table, err := cards.New([]cards.Entry{
		{UID: "B2BA9C1E", Name: "Tarjeta 1", Command: []string{"touch", "/home/pi/sonidos.txt"}},
		{UID: "YYYYYYYY", Name: "Tarjeta 2", Command: []string{"python3", "/home/pi/script1.py"}},
		{UID: "ZZZZZZZZ", Name: "Tarjeta 3", Command: []string{"systemctl", "restart", "nginx"}},
	})
	require.NoError(t, err)
	return table
}

func TestDispatchStartsExactCommand(t *testing.T) {
	table := testTable(t)
	runner := &fakeRunner{}
	d := New(table, runner, nil, Hooks{})

	for _, e := range table.Entries() {
		assert.Equal(t, Started, d.Dispatch(Event{UID: e.UID}))
	}

	require.Len(t, runner.started, 3)
	for i, e := range table.Entries() {
		assert.Equal(t, e.Command, runner.started[i].Command)
	}
}

func TestDispatchUnknownStartsNothing(t *testing.T) {
	runner := &fakeRunner{}
	var unknown []string
	d := New(testTable(t), runner, NewDebouncer(0), Hooks{
		OnUnknown: func(ev Event) { unknown = append(unknown, ev.UID) },
	})

	assert.Equal(t, Unknown, d.Dispatch(Event{UID: "DEADBEEF"}))
	assert.Equal(t, Unknown, d.Dispatch(Event{UID: "b2ba9c1e"}))
	assert.Empty(t, runner.started)
	assert.Equal(t, []string{"DEADBEEF", "b2ba9c1e"}, unknown)
}

func TestDispatchDebouncesHeldCard(t *testing.T) {
	runner := &fakeRunner{}
	d := New(testTable(t), runner, NewDebouncer(0), Hooks{})

	assert.Equal(t, Started, d.Dispatch(Event{UID: "B2BA9C1E"}))
	assert.Equal(t, Ignored, d.Dispatch(Event{UID: "B2BA9C1E"}))
	assert.Equal(t, Ignored, d.Dispatch(Event{UID: "B2BA9C1E"}))
	assert.Equal(t, []string{"B2BA9C1E"}, runner.uids())

	// Removed and presented again.
	assert.Equal(t, Ignored, d.Dispatch(Event{UID: ""}))
	assert.Equal(t, Started, d.Dispatch(Event{UID: "B2BA9C1E"}))
	assert.Equal(t, []string{"B2BA9C1E", "B2BA9C1E"}, runner.uids())
}

func TestDispatchSwitchingCardsTriggersEach(t *testing.T) {
	runner := &fakeRunner{}
	d := New(testTable(t), runner, NewDebouncer(0), Hooks{})

	d.Dispatch(Event{UID: "B2BA9C1E"})
	d.Dispatch(Event{UID: "YYYYYYYY"})
	d.Dispatch(Event{UID: "B2BA9C1E"})
	assert.Equal(t, []string{"B2BA9C1E", "YYYYYYYY", "B2BA9C1E"}, runner.uids())
}

func TestDispatchStartFailureDoesNotStopNextCard(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{"B2BA9C1E": errors.New("exec: \"touch\": not found")}}
	var failed []string
	d := New(testTable(t), runner, NewDebouncer(0), Hooks{
		OnStartFailed: func(ev Event, entry cards.Entry, err error) { failed = append(failed, entry.UID) },
	})

	assert.Equal(t, StartFailed, d.Dispatch(Event{UID: "B2BA9C1E"}))
	assert.Equal(t, Started, d.Dispatch(Event{UID: "YYYYYYYY"}))
	assert.Equal(t, []string{"B2BA9C1E"}, failed)
	assert.Equal(t, []string{"YYYYYYYY"}, runner.uids())
}

func TestTriggerBypassesDebounce(t *testing.T) {
	runner := &fakeRunner{}
	d := New(testTable(t), runner, NewDebouncer(0), Hooks{})

	d.Dispatch(Event{UID: "B2BA9C1E"})
	assert.Equal(t, Started, d.Trigger("B2BA9C1E"))
	assert.Equal(t, Ignored, d.Trigger(""))
	assert.Len(t, runner.started, 2)
}

func TestSetTableSwapsLookups(t *testing.T) {
	runner := &fakeRunner{}
	d := New(testTable(t), runner, nil, Hooks{})

	next, err := cards.New([]cards.Entry{{UID: "NEWCARD", Name: "new", Command: []string{"true"}}})
	require.NoError(t, err)
	d.SetTable(next)

	assert.Equal(t, Unknown, d.Dispatch(Event{UID: "B2BA9C1E"}))
	assert.Equal(t, Started, d.Dispatch(Event{UID: "NEWCARD"}))
	assert.Same(t, next, d.Table())
}

func TestRunStopsOnReaderError(t *testing.T) {
	runner := &fakeRunner{}
	d := New(testTable(t), runner, NewDebouncer(0), Hooks{})
	src := &fakeSource{readings: []string{"", "B2BA9C1E", "B2BA9C1E", "DEADBEEF", "", "YYYYYYYY"}}

	err := d.Run(context.Background(), src)
	require.ErrorIs(t, err, errSourceDone)
	assert.Equal(t, []string{"B2BA9C1E", "YYYYYYYY"}, runner.uids())
}

func TestRunReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(testTable(t), &fakeRunner{}, nil, Hooks{})
	err := d.Run(ctx, &fakeSource{readings: []string{"B2BA9C1E"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecRunnerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	table, err := cards.New([]cards.Entry{
		{UID: "B2BA9C1E", Name: "Tarjeta 1", Command: []string{"touch", path}},
	})
	require.NoError(t, err)

	runner := NewExecRunner(nil)
	d := New(table, runner, NewDebouncer(0), Hooks{})

	require.Equal(t, Started, d.Dispatch(Event{UID: "B2BA9C1E"}))
	runner.Wait()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestExecRunnerFailingCommandDoesNotBlockNext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "after-failure")
	table, err := cards.New([]cards.Entry{
		{UID: "FAIL0001", Name: "broken", Command: []string{"sh", "-c", "echo boom >&2; exit 3"}},
		{UID: "MISSING1", Name: "missing", Command: []string{filepath.Join(t.TempDir(), "no-such-binary")}},
		{UID: "GOOD0001", Name: "good", Command: []string{"touch", path}},
	})
	require.NoError(t, err)

	var mu sync.Mutex
	exits := map[string]Exit{}
	runner := NewExecRunner(func(e Exit) {
		mu.Lock()
		defer mu.Unlock()
		exits[e.Entry.UID] = e
	})
	d := New(table, runner, NewDebouncer(0), Hooks{})

	assert.Equal(t, Started, d.Dispatch(Event{UID: "FAIL0001"}))
	assert.Equal(t, StartFailed, d.Dispatch(Event{UID: "MISSING1"}))
	assert.Equal(t, Started, d.Dispatch(Event{UID: "GOOD0001"}))
	runner.Wait()

	_, err = os.Stat(path)
	assert.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, exits, "FAIL0001")
	assert.Equal(t, 3, exits["FAIL0001"].Code)
	assert.Error(t, exits["FAIL0001"].Err)
	assert.Equal(t, "boom", exits["FAIL0001"].Output)
	assert.Equal(t, 0, exits["GOOD0001"].Code)
	assert.NotContains(t, exits, "MISSING1")
}

func TestExecRunnerDoesNotWaitForCommand(t *testing.T) {
	runner := NewExecRunner(nil)
	entry := cards.Entry{UID: "SLOW", Command: []string{"sleep", "1"}}

	begin := time.Now()
	require.NoError(t, runner.Start(entry))
	assert.Less(t, time.Since(begin), 500*time.Millisecond)
	runner.Wait()
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "started", Started.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
