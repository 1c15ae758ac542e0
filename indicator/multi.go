package indicator

import "errors"

// Multi fans every state change out to a set of indicators, in order.
type Multi struct {
	all []Indicator
}

func NewMulti(indicators ...Indicator) *Multi {
	return &Multi{all: indicators}
}

func (m *Multi) each(fn func(Indicator)) {
	for _, ind := range m.all {
		fn(ind)
	}
}

func (m *Multi) Idle()                  { m.each(Indicator.Idle) }
func (m *Multi) ConnectionLost()        { m.each(Indicator.ConnectionLost) }
func (m *Multi) Shutdown()              { m.each(Indicator.Shutdown) }
func (m *Multi) Playing(info *CardInfo) { m.each(func(i Indicator) { i.Playing(info) }) }
func (m *Multi) Failed(info *CardInfo)  { m.each(func(i Indicator) { i.Failed(info) }) }
func (m *Multi) Unknown(uid string)     { m.each(func(i Indicator) { i.Unknown(uid) }) }

// Release releases every indicator, even after a failure, and joins the errors.
func (m *Multi) Release() error {
	var errs []error
	m.each(func(i Indicator) {
		if err := i.Release(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
