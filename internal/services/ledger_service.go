package services

import (
	"codonledger/internal/logging"
	"codonledger/internal/models"
	"context"
)

// Identity is the verified caller of an API request
type Identity struct {
	UserID        string
	CorrelationID string
}

// LedgerService runs the write operations exposed by the API. Observers are
// notified through the store's change listener, so a write returns as soon
// as the mutation is applied and the update is enqueued.
type LedgerService struct {
	store   *LedgerStore
	metrics *Metrics
}

// NewLedgerService creates the write service
func NewLedgerService(store *LedgerStore, metrics *Metrics) *LedgerService {
	return &LedgerService{store: store, metrics: metrics}
}

// CreateCodon validates the request and appends a codon to its session.
// The attributed user defaults to the caller.
func (s *LedgerService) CreateCodon(ctx context.Context, req *models.CreateCodonRequest, who Identity) (*models.Codon, error) {
	logger := logging.WithSession(logging.WithRequest(who.CorrelationID, who.UserID), req.SessionID)

	if err := req.Validate(); err != nil {
		verr := validationFromValidator(err)
		s.metrics.RecordWriteError("validation")
		logger.Warn("codon rejected", "error", verr)
		return nil, verr
	}

	fields := req.Fields()
	if fields.ContextAttribution == nil {
		fields.ContextAttribution = &models.ContextAttribution{}
	} else {
		attribution := *fields.ContextAttribution
		fields.ContextAttribution = &attribution
	}
	if fields.ContextAttribution.UserID == "" {
		fields.ContextAttribution.UserID = who.UserID
	}

	codon, err := s.store.AppendCodon(req.SessionID, fields)
	if err != nil {
		s.metrics.RecordWriteError("validation")
		logger.Warn("codon rejected", "error", err)
		return nil, err
	}

	s.metrics.RecordCodonAppended()
	logger.Info("codon appended", "codon_id", codon.ID, "type", codon.Type)
	return codon, nil
}

// AttachOutcome attaches (or replaces) the outcome of a codon
func (s *LedgerService) AttachOutcome(ctx context.Context, sessionID, codonID string, req *models.AttachOutcomeRequest, who Identity) (*models.Codon, error) {
	logger := logging.WithSession(logging.WithRequest(who.CorrelationID, who.UserID), sessionID)

	if err := req.Validate(); err != nil {
		verr := validationFromValidator(err)
		s.metrics.RecordWriteError("validation")
		logger.Warn("outcome rejected", "codon_id", codonID, "error", verr)
		return nil, verr
	}

	codon, err := s.store.AttachOutcome(sessionID, codonID, req.Outcome)
	if err != nil {
		kind := "validation"
		if IsNotFound(err) {
			kind = "not_found"
		}
		s.metrics.RecordWriteError(kind)
		logger.Warn("outcome rejected", "codon_id", codonID, "error", err)
		return nil, err
	}

	s.metrics.RecordOutcomeAttached()
	logger.Info("outcome attached", "codon_id", codon.ID)
	return codon, nil
}
