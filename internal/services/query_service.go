package services

import (
	"codonledger/internal/logging"
	"codonledger/internal/models"
	"context"
	"strings"
	"time"
)

// QueryService evaluates filtered queries and timelines against the ledger,
// going through the query cache when one is configured.
type QueryService struct {
	store    *LedgerStore
	cache    *QueryCache
	cacheTTL time.Duration
	metrics  *Metrics
}

// NewQueryService creates the read engine. cache may be nil.
func NewQueryService(store *LedgerStore, cache *QueryCache, metrics *Metrics) *QueryService {
	return &QueryService{
		store:    store,
		cache:    cache,
		cacheTTL: DefaultQueryCacheTTL,
		metrics:  metrics,
	}
}

// QueryCodons returns the codons matching every non-empty filter. The
// result says whether it came from the cache, a live scan, or a live scan
// forced by a cache failure. Cache failures never fail the query.
func (s *QueryService) QueryCodons(ctx context.Context, filters models.QueryFilters) (*models.QueryResult, error) {
	key := CacheKey(filters)
	degraded := false

	cached, hit, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		degraded = true
		logging.FromContext(ctx).Warn("[QUERY-CACHE] serving query without cache", "key", key, "error", err)
	case hit:
		s.metrics.RecordQuery(models.SourceCache)
		return &models.QueryResult{Codons: cached, Source: models.SourceCache}, nil
	}

	codons := s.scan(filters)

	if !degraded {
		if err := s.cache.Put(ctx, key, codons, s.cacheTTL); err != nil {
			degraded = IsCacheUnavailable(err)
			logging.FromContext(ctx).Warn("[QUERY-CACHE] failed to store query result", "key", key, "error", err)
		}
	}

	result := &models.QueryResult{Codons: codons, Source: models.SourceLive}
	if degraded {
		result.Source = models.SourceFallback
		result.Degraded = true
	}
	s.metrics.RecordQuery(result.Source)
	return result, nil
}

// scan applies the filter conjunction to every codon in the ledger
func (s *QueryService) scan(filters models.QueryFilters) []models.Codon {
	matches := []models.Codon{}
	for codon := range s.store.AllCodons() {
		if Matches(&codon, filters) {
			matches = append(matches, codon)
		}
	}
	return matches
}

// Matches reports whether codon satisfies every non-empty filter. riskLevel
// and agent are exact matches; strategy is a case-sensitive substring of
// the content.
func Matches(codon *models.Codon, filters models.QueryFilters) bool {
	if filters.RiskLevel != "" && codon.RiskLevel != filters.RiskLevel {
		return false
	}
	if filters.Agent != "" && codon.AgentID() != filters.Agent {
		return false
	}
	if filters.Strategy != "" && !strings.Contains(codon.Content, filters.Strategy) {
		return false
	}
	return true
}

// GetCodon looks up a single codon by id
func (s *QueryService) GetCodon(codonID string) (*models.Codon, error) {
	codon, ok := s.store.FindCodon(codonID)
	if !ok {
		return nil, &NotFoundError{Resource: "codon", ID: codonID}
	}
	return codon, nil
}

// TimelineFor assembles the history of one codon: its creation, then its
// outcome if one has been attached.
func (s *QueryService) TimelineFor(codonID string) ([]models.TimelineEvent, error) {
	codon, err := s.GetCodon(codonID)
	if err != nil {
		return nil, err
	}

	timeline := []models.TimelineEvent{{
		Event:     models.TimelineCreated,
		Timestamp: codon.Timestamp,
		Content:   codon.Content,
		Type:      codon.Type,
		Origin:    codon.Origin,
	}}

	if codon.HasOutcome() {
		at := time.Now().UTC()
		if codon.OutcomeAttachedAt != nil {
			at = *codon.OutcomeAttachedAt
		}
		timeline = append(timeline, models.TimelineEvent{
			Event:     models.TimelineOutcome,
			Timestamp: at,
			Outcome:   codon.Outcome,
		})
	}
	return timeline, nil
}

// SessionStrand returns the strand of one session
func (s *QueryService) SessionStrand(sessionID string) (*models.Strand, error) {
	strand, ok := s.store.Strand(sessionID)
	if !ok {
		return nil, &NotFoundError{Resource: "session", ID: sessionID}
	}
	return strand, nil
}
