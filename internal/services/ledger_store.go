package services

import (
	"codonledger/internal/models"
	"iter"
	"log"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChangeListener observes ledger mutations. Listeners run while the ledger
// write lock is held, in mutation order, so they must not block or call back
// into the store.
type ChangeListener func(change models.LedgerChange)

// LedgerStore owns the mapping from session to strand. It is the only
// component that mutates ledger state; everything it hands out is a copy.
type LedgerStore struct {
	mu        sync.RWMutex
	strands   map[string]*models.Strand
	order     []string // session ids in strand creation order
	listeners []ChangeListener

	now   func() time.Time
	newID func() string
}

// NewLedgerStore creates an empty ledger
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		strands: make(map[string]*models.Strand),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// OnChange registers a listener for every successful mutation
func (s *LedgerStore) OnChange(listener ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// AppendCodon validates the required fields, fills defaults and appends a new
// codon to the session's strand, creating the strand on first use.
func (s *LedgerStore) AppendCodon(sessionID string, fields models.CodonFields) (*models.Codon, error) {
	switch {
	case strings.TrimSpace(sessionID) == "":
		return nil, &ValidationError{Field: "sessionId", Message: "is required"}
	case strings.TrimSpace(fields.Content) == "":
		return nil, &ValidationError{Field: "content", Message: "is required"}
	case strings.TrimSpace(fields.PromptID) == "":
		return nil, &ValidationError{Field: "promptId", Message: "is required"}
	}

	created := s.now().UTC()
	codon := models.Codon{
		ID:              s.newID(),
		SessionID:       sessionID,
		Content:         fields.Content,
		PromptID:        fields.PromptID,
		Type:            valueOr(fields.Type, models.DefaultCodonType),
		Origin:          valueOr(fields.Origin, models.DefaultCodonOrigin),
		SemanticIndex:   slices.Clone(fields.SemanticIndex),
		TemporalCluster: valueOr(fields.TemporalCluster, created.Format(time.RFC3339)),
		RiskLevel:       fields.RiskLevel,
		Timestamp:       created,
	}
	if codon.SemanticIndex == nil {
		codon.SemanticIndex = []string{}
	}
	if fields.ContextAttribution != nil {
		codon.ContextAttribution.UserID = fields.ContextAttribution.UserID
		if fields.ContextAttribution.AgentID != nil {
			agent := *fields.ContextAttribution.AgentID
			codon.ContextAttribution.AgentID = &agent
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	strand, ok := s.strands[sessionID]
	if !ok {
		strand = &models.Strand{SessionID: sessionID, Codons: []models.Codon{}}
		s.strands[sessionID] = strand
		s.order = append(s.order, sessionID)
		log.Printf("🧬 [LEDGER] Strand created for session %s", sessionID)
	}
	strand.Codons = append(strand.Codons, codon)

	s.notify(models.ChangeCreated, sessionID, &strand.Codons[len(strand.Codons)-1])

	out := codon.Clone()
	return &out, nil
}

// AttachOutcome sets the outcome of an existing codon, replacing any earlier
// outcome, and returns the updated codon.
func (s *LedgerStore) AttachOutcome(sessionID, codonID string, outcome map[string]any) (*models.Codon, error) {
	if len(outcome) == 0 {
		return nil, &ValidationError{Field: "outcome", Message: "is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	strand, ok := s.strands[sessionID]
	if !ok {
		return nil, &NotFoundError{Resource: "session", ID: sessionID}
	}

	idx := slices.IndexFunc(strand.Codons, func(c models.Codon) bool { return c.ID == codonID })
	if idx < 0 {
		return nil, &NotFoundError{Resource: "codon", ID: codonID}
	}

	attachedAt := s.now().UTC()
	codon := &strand.Codons[idx]
	codon.Outcome = maps.Clone(outcome)
	codon.OutcomeAttachedAt = &attachedAt

	s.notify(models.ChangeOutcomeAttached, sessionID, codon)

	out := codon.Clone()
	return &out, nil
}

// FindCodon scans every strand for the codon with the given id
func (s *LedgerStore) FindCodon(codonID string) (*models.Codon, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sessionID := range s.order {
		for i := range s.strands[sessionID].Codons {
			if s.strands[sessionID].Codons[i].ID == codonID {
				out := s.strands[sessionID].Codons[i].Clone()
				return &out, true
			}
		}
	}
	return nil, false
}

// AllCodons yields every codon in the ledger: strands in creation order,
// codons in insertion order. Each iteration re-reads the ledger; every strand
// is copied under the read lock and yielded without holding it.
func (s *LedgerStore) AllCodons() iter.Seq[models.Codon] {
	return func(yield func(models.Codon) bool) {
		s.mu.RLock()
		sessions := slices.Clone(s.order)
		s.mu.RUnlock()

		for _, sessionID := range sessions {
			strand, ok := s.Strand(sessionID)
			if !ok {
				continue
			}
			for _, codon := range strand.Codons {
				if !yield(codon) {
					return
				}
			}
		}
	}
}

// Strand returns a copy of the session's strand
func (s *LedgerStore) Strand(sessionID string) (*models.Strand, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	strand, ok := s.strands[sessionID]
	if !ok {
		return nil, false
	}
	out := strand.Clone()
	return &out, true
}

// Stats counts sessions, codons and attached outcomes
func (s *LedgerStore) Stats() models.LedgerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.LedgerStats{Sessions: len(s.strands)}
	for _, strand := range s.strands {
		stats.Codons += len(strand.Codons)
		for i := range strand.Codons {
			if strand.Codons[i].HasOutcome() {
				stats.Outcomes++
			}
		}
	}
	return stats
}

// notify must be called with the write lock held
func (s *LedgerStore) notify(action models.ChangeAction, sessionID string, codon *models.Codon) {
	for _, listener := range s.listeners {
		listener(models.LedgerChange{
			Action:    action,
			SessionID: sessionID,
			Codon:     codon.Clone(),
		})
	}
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
