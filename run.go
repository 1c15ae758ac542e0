package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"nfcplay/buttons"
	"nfcplay/cards"
	"nfcplay/cover"
	"nfcplay/dispatch"
	"nfcplay/hotplug"
	"nfcplay/indicator"
	"nfcplay/mqtt"
	"nfcplay/reader"
	"nfcplay/rotary"
)

const (
	controlPrefix = "control:"
	idleDelay     = 3 * time.Second
	pingInterval  = 120 * time.Second
)

// App holds the application state and dependencies.
type App struct {
	cfg        *Config
	lock       *flock.Flock
	mqtt       *mqtt.Client
	reader     reader.UIDReader
	indicator  indicator.Indicator
	runner     *dispatch.ExecRunner
	dispatcher *dispatch.Dispatcher
	rotary     *rotary.Rotary
	buttons    *buttons.Pad
	hotplug    *hotplug.Monitor

	stopMu  sync.Mutex
	stop    context.CancelCauseFunc
	idleGen atomic.Uint64
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the reader and run the command of each card (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, ctx)
		},
	}
}

func runDaemon(cmd *cobra.Command, ctx *commandContext) error {
	fmt.Printf("nfcplay build %s\n", buildID())

	cfg, err := ctx.ensureConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go app.reloadOnHangup(signalCtx)

	err = app.Run(signalCtx)
	fmt.Println("Shutting down...")
	return err
}

// NewApp opens every configured device. On error whatever was opened is
// released again.
func NewApp(cfg *Config) (*App, error) {
	app := &App{cfg: cfg}
	if err := app.open(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) open() error {
	cfg := app.cfg

	app.lock = flock.New(cfg.runLockFile())
	locked, err := app.lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", cfg.runLockFile(), err)
	}
	if !locked {
		app.lock = nil
		return fmt.Errorf("another nfcplay is already using %s", cfg.Cards)
	}

	table, err := loadTable(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d cards from %s\n", table.Len(), cfg.Cards)

	app.indicator, err = indicator.New(cfg.Indicator)
	if err != nil {
		return fmt.Errorf("init indicator: %w", err)
	}
	app.indicator.ConnectionLost()

	r, err := reader.New(cfg.Reader)
	if err != nil {
		return fmt.Errorf("init reader: %w", err)
	}
	app.reader = r

	app.runner = dispatch.NewExecRunner(app.onExit)
	app.runner.Dir = cfg.WorkDir
	app.dispatcher = dispatch.New(table, app.runner, dispatch.NewDebouncer(cfg.rearmAfter()), dispatch.Hooks{
		OnUnknown:     app.onUnknown,
		OnStart:       app.onStart,
		OnStartFailed: app.onStartFailed,
	})

	app.mqtt, err = mqtt.New(cfg.MQTT, cfg.ClientID, mqtt.Handlers{
		OnConnect:    app.onMQTTConnect,
		OnDisconnect: app.onMQTTDisconnect,
		OnMessage:    app.onMQTTMessage,
	})
	if err != nil {
		return fmt.Errorf("init MQTT: %w", err)
	}

	app.rotary, err = rotary.New(cfg.Rotary, rotary.Handlers{
		OnTurn:  app.onTurn,
		OnPress: func() { app.runControl("toggle") },
	})
	if err != nil {
		return fmt.Errorf("init rotary: %w", err)
	}
	if app.rotary != nil {
		log.Printf("Rotary encoder initialized (CLK=%d, DT=%d, BTN=%d)",
			cfg.Rotary.CLKPin, cfg.Rotary.DTPin, cfg.Rotary.ButtonPin)
	}

	app.buttons, err = buttons.New(cfg.Buttons, app.runControl)
	if err != nil {
		return fmt.Errorf("init buttons: %w", err)
	}

	app.hotplug = hotplug.New(cfg.Hotplug, cfg.Reader.Device, app.onReaderRemoved)

	return nil
}

// Run polls the reader until ctx is done or the reader fails. Cancellation
// from the caller is a clean stop and returns nil.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := context.WithCancelCause(ctx)
	defer stop(nil)
	app.stopMu.Lock()
	app.stop = stop
	app.stopMu.Unlock()

	if err := app.hotplug.Start(ctx); err != nil {
		return fmt.Errorf("start hotplug: %w", err)
	}

	go func() {
		if err := app.mqtt.Connect(); err != nil {
			log.Printf("MQTT connect: %v", err)
		}
	}()
	go app.pingSender(ctx)

	err := app.dispatcher.Run(ctx, app.reader)
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close releases every device. Safe on a partly built App.
func (app *App) Close() {
	if app.mqtt != nil {
		app.mqtt.Disconnect()
	}
	app.hotplug.Stop()
	if app.reader != nil {
		app.reader.Close()
	}
	if app.indicator != nil {
		app.indicator.Shutdown()
		if err := app.indicator.Release(); err != nil {
			log.Printf("Release indicator: %v", err)
		}
	}
	app.rotary.Release()
	if err := app.buttons.Release(); err != nil {
		log.Printf("Release buttons: %v", err)
	}
	if app.lock != nil {
		app.lock.Unlock()
	}
}

// loadTable reads the card table under a shared lock so it never races with
// enroll rewriting it.
func loadTable(cfg *Config) (*cards.Table, error) {
	lock := flock.New(cfg.LockFile)
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", cfg.LockFile, err)
	}
	defer lock.Unlock()

	t, err := cards.Load(cfg.Cards)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	return t, nil
}

// reload swaps in the table from disk. On error the old table stays.
func (app *App) reload() error {
	t, err := loadTable(app.cfg)
	if err != nil {
		return err
	}
	app.dispatcher.SetTable(t)
	fmt.Printf("Card table reloaded: %d cards\n", t.Len())
	app.mqtt.Publish(mqtt.StatusTopic(app.cfg.ClientID, "cards/reload"),
		fmt.Sprintf(`{"status":"loaded","cards":%d}`, t.Len()))
	return nil
}

func (app *App) reloadOnHangup(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := app.reload(); err != nil {
				log.Printf("Reload: %v", err)
			}
		}
	}
}

func (app *App) onReaderRemoved(device string) {
	log.Printf("Reader %s removed", device)
	app.indicator.ConnectionLost()
	app.halt(fmt.Errorf("%s: %w", device, reader.ErrDisconnected))
}

// halt ends a running Run with err. It reports false when nothing is running.
func (app *App) halt(err error) bool {
	app.stopMu.Lock()
	defer app.stopMu.Unlock()
	if app.stop == nil {
		return false
	}
	app.stop(err)
	return true
}

func (app *App) onStart(ev dispatch.Event, entry cards.Entry) {
	app.idleGen.Add(1)
	app.indicator.Playing(&indicator.CardInfo{
		UID:   entry.UID,
		Name:  entry.Name,
		Cover: coverFor(entry.Command),
	})
	app.publishCard("started", ev.UID, entry.Name, true)
}

func (app *App) onUnknown(ev dispatch.Event) {
	app.indicator.Unknown(ev.UID)
	app.publishCard("unknown", ev.UID, "", false)
	app.idleAfter(idleDelay)
}

func (app *App) onStartFailed(ev dispatch.Event, entry cards.Entry, err error) {
	app.indicator.Failed(&indicator.CardInfo{UID: entry.UID, Name: entry.Name})
	app.publishCard("failed", ev.UID, entry.Name, true)
	app.idleAfter(idleDelay)
}

func (app *App) onExit(exit dispatch.Exit) {
	if strings.HasPrefix(exit.Entry.UID, controlPrefix) {
		return
	}

	evt := mqtt.ExitEvent{UID: exit.Entry.UID, Name: exit.Entry.Name, Code: exit.Code}
	if exit.Err != nil {
		evt.Error = exit.Err.Error()
	}
	if err := app.mqtt.PublishJSON(mqtt.StatusTopic(app.cfg.ClientID, "exit"), evt); err != nil {
		log.Printf("Publish exit: %v", err)
	}

	if exit.Err != nil {
		app.indicator.Failed(&indicator.CardInfo{UID: exit.Entry.UID, Name: exit.Entry.Name})
		app.idleAfter(idleDelay)
	}
}

// idleAfter returns the indicator to idle unless another card shows up first.
func (app *App) idleAfter(d time.Duration) {
	gen := app.idleGen.Add(1)
	time.AfterFunc(d, func() {
		if app.idleGen.Load() == gen {
			app.indicator.Idle()
		}
	})
}

func (app *App) publishCard(event, uid, name string, known bool) {
	evt := mqtt.CardEvent{Event: event, UID: uid, Name: name, Known: known}
	if err := app.mqtt.PublishJSON(mqtt.StatusTopic(app.cfg.ClientID, "card"), evt); err != nil {
		log.Printf("Publish card: %v", err)
	}
}

// coverFor finds cover art next to the first directory named in a command,
// looking from the end where players take their path argument.
func coverFor(command []string) string {
	for i := len(command) - 1; i >= 1; i-- {
		fi, err := os.Stat(command[i])
		if err != nil || !fi.IsDir() {
			continue
		}
		return cover.FindLocalCover(command[i])
	}
	return ""
}

// runControl starts the command bound to a control name.
func (app *App) runControl(name string) {
	tokens, ok := app.cfg.Controls[name]
	if !ok {
		log.Printf("No command for control %q", name)
		return
	}
	fmt.Printf("Control: %s\n", name)
	entry := cards.Entry{UID: controlPrefix + name, Name: name, Command: tokens}
	if err := app.runner.Start(entry); err != nil {
		log.Printf("Control %s: %v", name, err)
	}
}

func (app *App) onTurn(delta int) {
	if delta > 0 {
		app.runControl("volume_up")
	} else if delta < 0 {
		app.runControl("volume_down")
	}
}

func (app *App) onMQTTConnect() {
	topics := []string{
		mqtt.ReloadTopic,
		mqtt.ControlTopic(app.cfg.ClientID, "tap"),
		mqtt.ControlTopic(app.cfg.ClientID, "control"),
	}
	for _, topic := range topics {
		if err := app.mqtt.Subscribe(topic); err != nil {
			log.Printf("Subscribe error: %v", err)
		}
	}

	app.indicator.Idle()
}

func (app *App) onMQTTDisconnect() {
	app.indicator.ConnectionLost()
}

func (app *App) onMQTTMessage(topic string, payload []byte) {
	switch topic {
	case mqtt.ReloadTopic:
		fmt.Println("Received card table reload message")
		if err := app.reload(); err != nil {
			log.Printf("Reload: %v", err)
		}

	case mqtt.ControlTopic(app.cfg.ClientID, "tap"):
		if _, err := app.handleTap(payload, time.Now()); err != nil {
			log.Printf("Remote tap: %v", err)
		}

	case mqtt.ControlTopic(app.cfg.ClientID, "control"):
		app.runControl(strings.TrimSpace(string(payload)))
	}
}

func (app *App) pingSender(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.mqtt.Publish(mqtt.StatusTopic(app.cfg.ClientID, "ping"),
				fmt.Sprintf(`{"status":"ok","cards":%d}`, app.dispatcher.Table().Len()))
		}
	}
}
