package pipeline

import (
	"time"

	"rapidproto/internal/generation"
)

// EventType names what happened in a session.
type EventType string

const (
	EventPhaseCompleted EventType = "phase_completed"
	EventStageStarted   EventType = "stage_started"
	EventStageFinished  EventType = "stage_finished"
	EventFallback       EventType = "fallback"
	EventStaleDropped   EventType = "stale_dropped"
	EventReset          EventType = "reset"
)

// Event is streamed to observers of a session (websocket clients, the CLI).
type Event struct {
	Type      EventType          `json:"type"`
	SessionID string             `json:"sessionId"`
	Phase     string             `json:"phase,omitempty"`
	Stage     generation.Stage   `json:"stage,omitempty"`
	Notice    *generation.Notice `json:"notice,omitempty"`
	Time      time.Time          `json:"time"`
}

// Emitter receives session events. Implementations must not block.
type Emitter interface {
	Emit(Event)
}

type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

type noopEmitter struct{}

func (noopEmitter) Emit(Event) {}

// ChannelEmitter drops events when the channel is full.
type ChannelEmitter struct {
	Ch chan<- Event
}

func (e ChannelEmitter) Emit(ev Event) {
	select {
	case e.Ch <- ev:
	default:
	}
}
