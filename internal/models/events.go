package models

import "time"

// ChangeAction identifies the kind of ledger mutation
type ChangeAction string

const (
	ChangeCreated         ChangeAction = "created"
	ChangeOutcomeAttached ChangeAction = "outcome_attached"
)

// LedgerChange is emitted by the ledger store after every successful mutation
type LedgerChange struct {
	Action    ChangeAction
	SessionID string
	Codon     Codon // state of the codon after the mutation
}

// UpdateEventType is the discriminator of live update messages
const UpdateEventType = "nugget_update"

// UpdateEvent is pushed to every observer of a session when its strand changes
type UpdateEvent struct {
	Type      string         `json:"type"`
	EventID   string         `json:"eventId"` // fresh per delivery
	Action    ChangeAction   `json:"action"`
	SessionID string         `json:"sessionId"`
	CodonID   string         `json:"codonId"`
	Changes   map[string]any `json:"changes"`
	Timestamp time.Time      `json:"timestamp"`
}

// Timeline event kinds
const (
	TimelineCreated = "Created"
	TimelineOutcome = "Outcome"
)

// TimelineEvent is one entry in the history of a single codon
type TimelineEvent struct {
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Content   string         `json:"content,omitempty"`
	Type      string         `json:"type,omitempty"`
	Origin    string         `json:"origin,omitempty"`
	Outcome   map[string]any `json:"outcome,omitempty"`
}

// QueryFilters is a conjunction of optional predicates. Field order is
// significant: it fixes the canonical cache key serialization.
type QueryFilters struct {
	Agent     string `json:"agent"`
	RiskLevel string `json:"riskLevel"`
	Strategy  string `json:"strategy"`
}

// ResultSource tells callers where a query result came from
type ResultSource string

const (
	SourceCache    ResultSource = "cache"
	SourceLive     ResultSource = "live"
	SourceFallback ResultSource = "fallback" // cache backend failed, served without cache
)

// QueryResult is the outcome of a filtered codon query
type QueryResult struct {
	Codons   []Codon      `json:"codons"`
	Source   ResultSource `json:"source"`
	Degraded bool         `json:"degraded"`
}
