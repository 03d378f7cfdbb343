package events

import (
	"sync"
	"time"
)

type Kind string

const (
	KindProgress      Kind = "progress"
	KindLog           Kind = "log"
	KindChunkProgress Kind = "chunk-progress"
	KindTokenUsage    Kind = "token-usage"
	KindCompletion    Kind = "completion"
)

// Event is one progress notification for a job. Delivery is best-effort;
// readers rebuild authoritative status from the persisted job and ledger.
type Event struct {
	JobID     string      `json:"jobId"`
	Kind      Kind        `json:"kind"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Broadcaster fans events out to whoever is currently subscribed to a job.
// Subscriber sets are process-scoped: populated on subscription, cleared on
// disconnect or job completion. Safe for concurrent use across jobs.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a listener for a job and returns its event channel.
func (b *Broadcaster) Subscribe(jobID string) chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[chan Event]struct{})
	}
	b.subs[jobID][ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Broadcaster) Unsubscribe(jobID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[jobID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(b.subs, jobID)
	}
}

// Publish delivers an event to every current subscriber of the job.
// Slow subscribers are skipped rather than blocking the pipeline.
func (b *Broadcaster) Publish(jobID string, kind Kind, payload interface{}) {
	event := Event{
		JobID:     jobID,
		Kind:      kind,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[jobID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// CloseJob drops all subscribers of a finished job.
func (b *Broadcaster) CloseJob(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[jobID] {
		close(ch)
	}
	delete(b.subs, jobID)
}

// SubscriberCount reports how many listeners a job currently has.
func (b *Broadcaster) SubscriberCount(jobID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[jobID])
}
