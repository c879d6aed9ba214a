package runevent

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// InProcessBus is the default Bus implementation: a fan-out to a set of
// buffered subscriber channels. A slow subscriber drops events rather than
// blocking publishers, since run progress is advisory, not a durable log
// (that is tracelog's job).
type InProcessBus struct {
	log *logrus.Entry

	mu   sync.RWMutex
	subs map[chan Envelope]struct{}
}

// NewInProcessBus creates an empty bus.
func NewInProcessBus() *InProcessBus {
	return &InProcessBus{
		log:  logrus.WithField("component", "runevent"),
		subs: make(map[chan Envelope]struct{}),
	}
}

// Subscribe returns a channel receiving every published envelope.
func (b *InProcessBus) Subscribe() <-chan Envelope {
	ch := make(chan Envelope, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a previously subscribed channel.
func (b *InProcessBus) Unsubscribe(ch <-chan Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if sub == ch {
			delete(b.subs, sub)
			close(sub)
			return
		}
	}
}

func (b *InProcessBus) publish(env Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		select {
		case sub <- env:
		default:
			b.log.WithField("topic", env.Topic).Warn("dropping event for slow subscriber")
		}
	}
}

// PublishRunUpdate implements Bus.
func (b *InProcessBus) PublishRunUpdate(runID string, event RunUpdateEvent) {
	env, err := newEnvelope(TopicRunUpdate, event)
	if err != nil {
		b.log.WithError(err).Error("encode run update event")
		return
	}
	env.RunID = runID
	b.publish(env)
}

// Toast implements Bus and execctx.EventSink.
func (b *InProcessBus) Toast(message string, level int) {
	env, err := newEnvelope(TopicToast, ToastEvent{Message: message, Level: level})
	if err != nil {
		b.log.WithError(err).Error("encode toast event")
		return
	}
	b.publish(env)
}

// PublishAppEvent implements Bus.
func (b *InProcessBus) PublishAppEvent(appID, name string, payload any) {
	env, err := newEnvelope(TopicApp, map[string]any{"name": name, "data": payload})
	if err != nil {
		b.log.WithError(err).Error("encode app event")
		return
	}
	env.AppID = appID
	b.publish(env)
}
