// Package runevent multiplexes run progress, toast notifications, and
// arbitrary application events onto one envelope type, and provides an
// in-process bus plus an optional WebSocket bridge for external
// subscribers.
//
// Envelope shape grounded on Freitascorp-devopsclaw's pkg/relay.WSMessage:
// a type string, a timestamp, and a free-form json.RawMessage payload,
// reshaped from that package's register/command/result/ping relay
// protocol onto run/toast/app-event topics.
package runevent

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Method records whether a node activation started or finished, the two
// halves of a strictly paired Add/Remove sequence on the run_update topic.
type Method string

const (
	MethodAdd    Method = "add"
	MethodRemove Method = "remove"
)

// RunUpdateEvent reports that one or more nodes started or finished
// activating within a run.
type RunUpdateEvent struct {
	RunID   string   `json:"run_id"`
	NodeIDs []string `json:"node_ids"`
	Method  Method   `json:"method"`
}

// ToastEvent is an ephemeral, non-trace notification surfaced to whoever
// is watching a run.
type ToastEvent struct {
	Message string `json:"message"`
	Level   int    `json:"level"`
}

// Topic names the three event classes the envelope multiplexes.
type Topic string

const (
	TopicRunUpdate Topic = "run_update"
	TopicToast     Topic = "toast"
	TopicApp       Topic = "app"
)

// Envelope is the wire shape for every event this package emits.
type Envelope struct {
	ID        string          `json:"id"`
	Topic     Topic           `json:"topic"`
	RunID     string          `json:"run_id,omitempty"`
	AppID     string          `json:"app_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func newEnvelope(topic Topic, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:        uuid.NewString(),
		Topic:     topic,
		Timestamp: time.Now(),
		Payload:   raw,
	}, nil
}

// Bus is the in-process publish surface the scheduler and execctx write
// to; it satisfies execctx.EventSink's Toast method plus the richer
// run-update/app-event paths the scheduler and board versioning need.
type Bus interface {
	PublishRunUpdate(runID string, event RunUpdateEvent)
	Toast(message string, level int)
	PublishAppEvent(appID, name string, payload any)
	Subscribe() <-chan Envelope
	Unsubscribe(ch <-chan Envelope)
}
