package state

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Transition records one controller operation for observability. Failed
// operations carry the rejection message in Error.
type Transition struct {
	ID        string        `json:"id"`
	Operation string        `json:"operation"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration_ns"`
	Error     string        `json:"error,omitempty"`
}

// TransitionHandler processes transitions as they are recorded.
type TransitionHandler func(Transition)

// TransitionFilter decides whether a transition should be delivered.
type TransitionFilter func(Transition) bool

// AuditLog is a thread-safe circular buffer of controller transitions.
type AuditLog struct {
	mu       sync.RWMutex
	records  []Transition
	size     int
	head     int
	count    int
	handlers []auditHandlerEntry
	nextID   int64
}

type auditHandlerEntry struct {
	id      int64
	filter  TransitionFilter
	handler TransitionHandler
}

// NewAuditLog creates a transition buffer holding the most recent size
// records.
func NewAuditLog(size int) *AuditLog {
	if size <= 0 {
		size = 1000
	}
	return &AuditLog{
		records: make([]Transition, size),
		size:    size,
	}
}

// Record adds a transition and notifies subscribed handlers.
func (a *AuditLog) Record(t Transition) {
	a.mu.Lock()
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	a.records[a.head] = t
	a.head = (a.head + 1) % a.size
	if a.count < a.size {
		a.count++
	}

	handlers := make([]auditHandlerEntry, len(a.handlers))
	copy(handlers, a.handlers)
	a.mu.Unlock()

	// Notify handlers outside the lock
	for _, h := range handlers {
		if h.filter == nil || h.filter(t) {
			h.handler(t)
		}
	}
}

// Subscribe registers a handler for all transitions and returns an
// unsubscribe function.
func (a *AuditLog) Subscribe(handler TransitionHandler) func() {
	return a.SubscribeFiltered(nil, handler)
}

// SubscribeFiltered registers a handler with a filter.
func (a *AuditLog) SubscribeFiltered(filter TransitionFilter, handler TransitionHandler) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.handlers = append(a.handlers, auditHandlerEntry{
		id:      id,
		filter:  filter,
		handler: handler,
	})
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, h := range a.handlers {
			if h.id == id {
				a.handlers = append(a.handlers[:i], a.handlers[i+1:]...)
				return
			}
		}
	}
}

// Recent returns the most recent n transitions in reverse chronological
// order.
func (a *AuditLog) Recent(n int) []Transition {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if n <= 0 || a.count == 0 {
		return nil
	}
	if n > a.count {
		n = a.count
	}

	result := make([]Transition, n)
	for i := 0; i < n; i++ {
		idx := (a.head - 1 - i + a.size) % a.size
		result[i] = a.records[idx]
	}
	return result
}

// RecentByOperation returns recent transitions for one operation.
func (a *AuditLog) RecentByOperation(operation string, n int) []Transition {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if n <= 0 || a.count == 0 {
		return nil
	}

	var result []Transition
	for i := 0; i < a.count && len(result) < n; i++ {
		idx := (a.head - 1 - i + a.size) % a.size
		if a.records[idx].Operation == operation {
			result = append(result, a.records[idx])
		}
	}
	return result
}

// Count returns the number of buffered transitions.
func (a *AuditLog) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.count
}

// Clear removes all buffered transitions.
func (a *AuditLog) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = make([]Transition, a.size)
	a.head = 0
	a.count = 0
}
