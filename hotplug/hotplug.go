// Package hotplug watches udev for the card reader being unplugged.
package hotplug

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"
)

// Config selects the device node to watch.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Device  string `yaml:"device"` // defaults to the reader device
}

// Monitor listens for udev remove events on one device node.
type Monitor struct {
	device   string
	onRemove func(device string)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// New returns a monitor for device, or nil when there is nothing to watch.
// All Monitor methods are safe on a nil receiver.
func New(cfg Config, device string, onRemove func(device string)) *Monitor {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Device != "" {
		device = cfg.Device
	}
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	return &Monitor{device: device, onRemove: onRemove}
}

// Start connects to the udev netlink socket. Failing to connect is logged and
// leaves the monitor stopped.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		log.Printf("Hotplug: cannot open netlink socket, reader unplug goes unnoticed until the next read fails: %v", err)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	go m.monitorLoop(ctx, conn, m.quit)

	log.Printf("Hotplug: watching %s", m.device)
	return nil
}

// Stop closes the netlink socket.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	close(m.quit)
	m.quit = nil
	_ = m.conn.Close()
	m.conn = nil
	m.running = false
}

// Running reports whether the monitor is connected.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	monitorQuit := conn.Monitor(queue, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			log.Printf("Hotplug: netlink error: %v", err)
		}
	}
}

// buildMatcher matches every remove event; the device check happens in
// handleEvent because DEVNAME is not always present.
func buildMatcher() netlink.Matcher {
	action := "remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	devname := deviceName(uevent)
	if devname == "" || devname != m.device {
		return
	}

	log.Printf("Hotplug: %s removed", devname)
	if m.onRemove != nil {
		m.onRemove(devname)
	}
}

// deviceName gets the device node from a uevent, falling back to DEVPATH.
func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			devname = "/dev/" + devname
		}
		return devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
