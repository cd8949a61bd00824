// Package notify delivers user and organization notifications for task
// events. Delivery is best-effort: failures are logged and never surfaced to
// the core operation that fired them.
package notify

import "log"

// Event is a single notification.
type Event struct {
	Recipients []string // user IDs; empty for organization-wide events
	Text       string
	DeepLink   string
	Actor      string // user ID of the acting user, empty for system events
}

// Sink receives task notifications. Implementations must not block the
// caller on delivery failure.
type Sink interface {
	// Notify delivers an event to specific recipients.
	Notify(ev Event)

	// NotifyOrganization delivers an event to holders of task-approval
	// permission across the organization.
	NotifyOrganization(ev Event)
}

// LogSink writes notifications to the process log. It is the fallback sink
// when no chat channel is configured.
type LogSink struct{}

func (LogSink) Notify(ev Event) {
	log.Printf("notify: to=%v actor=%s %s", ev.Recipients, ev.Actor, ev.Text)
}

func (LogSink) NotifyOrganization(ev Event) {
	log.Printf("notify: org-wide actor=%s %s", ev.Actor, ev.Text)
}

// Multi fans an event out to several sinks.
type Multi []Sink

func (m Multi) Notify(ev Event) {
	for _, s := range m {
		s.Notify(ev)
	}
}

func (m Multi) NotifyOrganization(ev Event) {
	for _, s := range m {
		s.NotifyOrganization(ev)
	}
}
