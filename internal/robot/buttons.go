package robot

import (
	"fmt"

	"github.com/swiftbotics/swiftbot/internal/debug"
)

// Button identifies one of the four tactile buttons on the lid.
type Button int

const (
	ButtonA Button = iota
	ButtonB
	ButtonX
	ButtonY
	numButtons // sentinel, keep last
)

// String returns the button's label as printed on the board.
func (b Button) String() string {
	switch b {
	case ButtonA:
		return "A"
	case ButtonB:
		return "B"
	case ButtonX:
		return "X"
	case ButtonY:
		return "Y"
	}
	return fmt.Sprintf("Button(%d)", int(b))
}

// valid reports whether b is one of the four physical buttons.
func (b Button) valid() bool {
	return b >= ButtonA && b < numButtons
}

// ButtonObserver receives asynchronous button notifications. Handlers
// are invoked synchronously from the gateway's event goroutine, so they
// should return quickly; anything slow belongs on the observer's own
// goroutine.
type ButtonObserver interface {
	OnPressed(b Button)
	OnReleased(b Button)
}

// buttonDispatcher routes raw transitions from the gateway's event
// source to the single registered observer. The observer binding is set
// once at construction and never reassigned; a nil observer means
// events are dropped silently, which is degraded but not an error.
//
// The dispatcher is a pure router: no queueing, no debouncing. Events
// for the same button arrive in hardware order.
type buttonDispatcher struct {
	observer ButtonObserver
}

func newButtonDispatcher(obs ButtonObserver) *buttonDispatcher {
	return &buttonDispatcher{observer: obs}
}

// NotifyPressed forwards a press to the observer. Out-of-range ids from
// the event source are rejected rather than forwarded.
func (d *buttonDispatcher) NotifyPressed(id int) error {
	b := Button(id)
	if !b.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidButton, id)
	}
	debug.Button(id, true)
	if d.observer != nil {
		d.observer.OnPressed(b)
	}
	return nil
}

// NotifyReleased forwards a release to the observer.
func (d *buttonDispatcher) NotifyReleased(id int) error {
	b := Button(id)
	if !b.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidButton, id)
	}
	debug.Button(id, false)
	if d.observer != nil {
		d.observer.OnReleased(b)
	}
	return nil
}
