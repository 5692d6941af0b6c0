package watcher

import "github.com/google/uuid"

// EventType defines the type of event being broadcast.
type EventType string

const (
	EventStateChanged         EventType = "state_changed"
	EventCampaignLoaded       EventType = "campaign_loaded"
	EventLoadFailed           EventType = "load_failed"
	EventProgressUpdated      EventType = "progress_updated"
	EventContributionsUpdated EventType = "contributions_updated"
	EventClockTick            EventType = "clock_tick"
)

// Event represents a controller event. ID is unique per emitted event so
// websocket clients can drop duplicates after reconnecting.
type Event struct {
	ID   string      `json:"id"`
	Type EventType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

func newEvent(t EventType, data interface{}) Event {
	return Event{ID: uuid.NewString(), Type: t, Data: data}
}

// Subscriber is a channel that receives events.
type Subscriber chan Event
