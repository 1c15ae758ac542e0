package mqtt

import "fmt"

// ReloadTopic asks every node to reload its card table from disk.
const ReloadTopic = "nfcplay/control/broadcast/cards/reload"

// StatusTopic returns nfcplay/status/node/<clientID>/<leaf>.
func StatusTopic(clientID, leaf string) string {
	return fmt.Sprintf("nfcplay/status/node/%s/%s", clientID, leaf)
}

// ControlTopic returns nfcplay/control/node/<clientID>/<leaf>.
func ControlTopic(clientID, leaf string) string {
	return fmt.Sprintf("nfcplay/control/node/%s/%s", clientID, leaf)
}

// CardEvent is published on the card status topic for every card read.
type CardEvent struct {
	Event string `json:"event"` // "started", "unknown", "failed"
	UID   string `json:"uid"`
	Name  string `json:"name,omitempty"`
	Known bool   `json:"known"`
}

// ExitEvent is published when a card's command exits.
type ExitEvent struct {
	UID   string `json:"uid"`
	Name  string `json:"name,omitempty"`
	Code  int    `json:"code"`
	Error string `json:"error,omitempty"`
}
