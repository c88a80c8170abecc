package models

import (
	"maps"
	"slices"
	"time"
)

// Codon defaults applied when the caller omits the optional fields
const (
	DefaultCodonType   = "Condition"
	DefaultCodonOrigin = "User"
)

// ContextAttribution records who produced a codon
type ContextAttribution struct {
	UserID  string  `json:"userId"`
	AgentID *string `json:"agentId"` // nil when no agent was involved
}

// Codon is a single event in a session strand. Everything except Outcome is
// fixed at creation time.
type Codon struct {
	ID                 string             `json:"id"`
	SessionID          string             `json:"sessionId"`
	Content            string             `json:"content"`
	PromptID           string             `json:"promptId"`
	Type               string             `json:"type"`
	Origin             string             `json:"origin"`
	SemanticIndex      []string           `json:"semanticIndex"`
	TemporalCluster    string             `json:"temporalCluster"`
	ContextAttribution ContextAttribution `json:"contextAttribution"`
	RiskLevel          string             `json:"riskLevel,omitempty"`
	Timestamp          time.Time          `json:"timestamp"`
	Outcome            map[string]any     `json:"outcome,omitempty"`
	OutcomeAttachedAt  *time.Time         `json:"outcomeAttachedAt,omitempty"`
}

// HasOutcome reports whether an outcome has been attached
func (c *Codon) HasOutcome() bool {
	return c.Outcome != nil
}

// AgentID returns the attributed agent or "" when there is none
func (c *Codon) AgentID() string {
	if c.ContextAttribution.AgentID == nil {
		return ""
	}
	return *c.ContextAttribution.AgentID
}

// Clone returns a copy that shares no mutable state with c.
func (c *Codon) Clone() Codon {
	out := *c
	out.SemanticIndex = slices.Clone(c.SemanticIndex)
	if out.SemanticIndex == nil {
		out.SemanticIndex = []string{}
	}
	if c.ContextAttribution.AgentID != nil {
		agent := *c.ContextAttribution.AgentID
		out.ContextAttribution.AgentID = &agent
	}
	if c.Outcome != nil {
		out.Outcome = maps.Clone(c.Outcome)
	}
	if c.OutcomeAttachedAt != nil {
		at := *c.OutcomeAttachedAt
		out.OutcomeAttachedAt = &at
	}
	return out
}

// CodonFields are the caller-supplied fields of a new codon. Empty optional
// fields are filled with defaults by the ledger store.
type CodonFields struct {
	Content            string
	PromptID           string
	Type               string
	Origin             string
	SemanticIndex      []string
	TemporalCluster    string
	ContextAttribution *ContextAttribution
	RiskLevel          string
}

// Strand is the ordered log of codons for one session
type Strand struct {
	SessionID string  `json:"sessionId"`
	Codons    []Codon `json:"codons"`
}

// Clone returns a deep copy of the strand
func (s *Strand) Clone() Strand {
	out := Strand{
		SessionID: s.SessionID,
		Codons:    make([]Codon, len(s.Codons)),
	}
	for i := range s.Codons {
		out.Codons[i] = s.Codons[i].Clone()
	}
	return out
}

// LedgerStats summarises the ledger contents
type LedgerStats struct {
	Sessions int `json:"sessions"`
	Codons   int `json:"codons"`
	Outcomes int `json:"outcomes"`
}
