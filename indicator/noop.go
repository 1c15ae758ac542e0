package indicator

// Noop implements Indicator but does nothing.
// Used when no indicators are configured.
type Noop struct{}

func (n *Noop) Idle()                  {}
func (n *Noop) Playing(info *CardInfo) {}
func (n *Noop) Unknown(uid string)     {}
func (n *Noop) Failed(info *CardInfo)  {}
func (n *Noop) ConnectionLost()        {}
func (n *Noop) Shutdown()              {}
func (n *Noop) Release() error         { return nil }
