package web

import (
	"github.com/swiftbotics/swiftbot/internal/robot"
)

// ButtonRelay forwards validated button events into the SSE feed so the
// dashboard can show presses live. It is the robot.ButtonObserver bound
// at construction time.
type ButtonRelay struct {
	events *EventBroadcaster
}

// NewButtonRelay creates a relay publishing to the given broadcaster.
func NewButtonRelay(events *EventBroadcaster) *ButtonRelay {
	return &ButtonRelay{events: events}
}

func (rl *ButtonRelay) OnPressed(b robot.Button) {
	rl.events.Broadcast(Event{Kind: "button", Button: b.String(), State: "pressed"})
}

func (rl *ButtonRelay) OnReleased(b robot.Button) {
	rl.events.Broadcast(Event{Kind: "button", Button: b.String(), State: "released"})
}

var _ robot.ButtonObserver = (*ButtonRelay)(nil)
