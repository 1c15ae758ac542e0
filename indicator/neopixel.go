package indicator

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Commands understood by the neopixel helper: @mode, optional !period in
// microseconds, then a hex colour.
const (
	neoIdle     = "@3 !150000 000040"
	neoPlaying  = "@1 !50000 8000"
	neoUnknown  = "@2 !10000 ff8000"
	neoFailed   = "@2 !10000 ff"
	neoOffline  = "@2 !150000 001010"
	neoShutdown = "@0 010101"
)

// Neopixel writes one command line per state change to the helper's FIFO.
// Writes after Release are dropped.
type Neopixel struct {
	mu   sync.Mutex
	fifo *os.File
}

// NewNeopixel opens the FIFO read-write so opening does not block waiting for
// the helper.
func NewNeopixel(path string) (*Neopixel, error) {
	fifo, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open neopixel pipe %s: %w", path, err)
	}
	return &Neopixel{fifo: fifo}, nil
}

func (n *Neopixel) Idle()                  { n.send(neoIdle) }
func (n *Neopixel) Playing(info *CardInfo) { n.send(neoPlaying) }
func (n *Neopixel) Unknown(uid string)     { n.send(neoUnknown) }
func (n *Neopixel) Failed(info *CardInfo)  { n.send(neoFailed) }
func (n *Neopixel) ConnectionLost()        { n.send(neoOffline) }
func (n *Neopixel) Shutdown()              { n.send(neoShutdown) }

func (n *Neopixel) Release() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	fifo := n.fifo
	n.fifo = nil
	if fifo == nil {
		return nil
	}
	return fifo.Close()
}

func (n *Neopixel) send(cmd string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fifo == nil {
		return
	}
	if _, err := fmt.Fprintln(n.fifo, cmd); err != nil {
		log.Printf("neopixel: %v", err)
	}
}
