package services

import (
	"codonledger/internal/models"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultObserverBuffer is the per-observer queue length used when callers
// pass a non-positive buffer size.
const DefaultObserverBuffer = 64

// NotificationHub fans ledger changes out to the live observers of a session.
// Observers are registered per session, so a broadcast touches only the
// observers of the affected session.
//
// Delivery is best-effort: each observer has its own buffered queue and a
// full queue drops the event for that observer only. Broadcasts never block
// the writer that triggered them.
type NotificationHub struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan models.UpdateEvent // sessionID → subID → chan
	metrics     *Metrics
	newEventID  func() string
}

// NewNotificationHub creates an empty hub
func NewNotificationHub(metrics *Metrics) *NotificationHub {
	return &NotificationHub{
		subscribers: make(map[string]map[string]chan models.UpdateEvent),
		metrics:     metrics,
		newEventID:  func() string { return uuid.New().String() },
	}
}

// Register binds an observer to one session and returns its event queue.
// The queue is closed by Unregister.
func (h *NotificationHub) Register(sessionID, subID string, bufSize int) <-chan models.UpdateEvent {
	if bufSize <= 0 {
		bufSize = DefaultObserverBuffer
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan models.UpdateEvent, bufSize)
	conns, ok := h.subscribers[sessionID]
	if !ok {
		conns = make(map[string]chan models.UpdateEvent)
		h.subscribers[sessionID] = conns
	}
	if old, exists := conns[subID]; exists {
		close(old)
	} else {
		h.metrics.RecordObserverConnect()
	}
	conns[subID] = ch

	log.Printf("[FANOUT] Register: session=%s sub=%s (observers=%d)", sessionID, subID, len(conns))
	return ch
}

// Unregister removes an observer and closes its queue
func (h *NotificationHub) Unregister(sessionID, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.subscribers[sessionID]
	if !ok {
		return
	}
	ch, ok := conns[subID]
	if !ok {
		return
	}

	close(ch)
	delete(conns, subID)
	if len(conns) == 0 {
		delete(h.subscribers, sessionID)
	}
	h.metrics.RecordObserverDisconnect()

	log.Printf("[FANOUT] Unregister: session=%s sub=%s (remaining=%d)", sessionID, subID, len(conns))
}

// Broadcast enqueues event to every observer of sessionID, stamping a fresh
// event id per delivery. It returns the number of observers that accepted it.
func (h *NotificationHub) Broadcast(sessionID string, event models.UpdateEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for subID, ch := range h.subscribers[sessionID] {
		event.EventID = h.newEventID()
		select {
		case ch <- event:
			delivered++
			h.metrics.RecordBroadcast(true)
		default:
			// Observer is not keeping up, drop for this one only
			h.metrics.RecordBroadcast(false)
			log.Printf("⚠️ [FANOUT] Dropped %s for slow observer %s (session %s)", event.Action, subID, sessionID)
		}
	}
	return delivered
}

// HandleLedgerChange converts a ledger mutation into a nugget_update
// broadcast. It is registered as a LedgerStore change listener, so it runs
// in mutation order.
func (h *NotificationHub) HandleLedgerChange(change models.LedgerChange) {
	h.Broadcast(change.SessionID, models.UpdateEvent{
		Type:      models.UpdateEventType,
		Action:    change.Action,
		SessionID: change.SessionID,
		CodonID:   change.Codon.ID,
		Changes:   changedFields(change),
		Timestamp: time.Now().UTC(),
	})
}

// ObserverCount returns the number of observers of a session
func (h *NotificationHub) ObserverCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[sessionID])
}

// Count returns the number of observers across all sessions
func (h *NotificationHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, conns := range h.subscribers {
		total += len(conns)
	}
	return total
}

// changedFields lists the fields a mutation set: every field for a new codon,
// only the outcome for an attachment.
func changedFields(change models.LedgerChange) map[string]any {
	c := change.Codon
	if change.Action == models.ChangeOutcomeAttached {
		return map[string]any{
			"outcome":           c.Outcome,
			"outcomeAttachedAt": c.OutcomeAttachedAt,
		}
	}

	fields := map[string]any{
		"content":            c.Content,
		"promptId":           c.PromptID,
		"type":               c.Type,
		"origin":             c.Origin,
		"semanticIndex":      c.SemanticIndex,
		"temporalCluster":    c.TemporalCluster,
		"contextAttribution": c.ContextAttribution,
		"timestamp":          c.Timestamp,
	}
	if c.RiskLevel != "" {
		fields["riskLevel"] = c.RiskLevel
	}
	return fields
}
