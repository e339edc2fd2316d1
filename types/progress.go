package types

// ProgressEvent is a fire-and-forget stage-transition notification. Never
// persisted, only broadcast to currently connected subscribers.
type ProgressEvent struct {
	Message  string `json:"message"`
	State    string `json:"state"`
	UserID   string `json:"user_id,omitempty"` // anonymous publication is allowed
	Progress int    `json:"progress"`          // percentage 0-100
}

// Publisher publishes progress events. Implementations must not block the
// pipeline; delivery is best effort.
type Publisher interface {
	Publish(event ProgressEvent)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ProgressEvent) {}
