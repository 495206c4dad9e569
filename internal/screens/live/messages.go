package live

import (
	"time"

	"github.com/abhisek/classwatch/internal/monitor"
	"github.com/abhisek/classwatch/internal/report"
)

// eventMsg carries one monitor event off the subscription.
type eventMsg struct {
	Event monitor.Event
}

func (eventMsg) Broadcast() bool { return true }

// subscriptionClosedMsg is sent once the subscription channel closes.
type subscriptionClosedMsg struct{}

func (subscriptionClosedMsg) Broadcast() bool { return true }

// refreshTickMsg refreshes the elapsed time and snapshot once a second.
type refreshTickMsg time.Time

func (refreshTickMsg) Broadcast() bool { return true }

// stoppedMsg is sent when the stop function returns.
type stoppedMsg struct {
	Report *report.Report
	Err    error
}
