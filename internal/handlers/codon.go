package handlers

import (
	"codonledger/internal/models"
	"codonledger/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CodonHandler serves the ledger API
type CodonHandler struct {
	ledger *services.LedgerService
	query  *services.QueryService
}

// NewCodonHandler creates a new codon handler
func NewCodonHandler(ledger *services.LedgerService, query *services.QueryService) *CodonHandler {
	return &CodonHandler{ledger: ledger, query: query}
}

// Create appends a codon to a session strand
// POST /api/codons
func (h *CodonHandler) Create(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return writeError(c, err)
	}

	var req models.CreateCodonRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, &services.ValidationError{Message: "invalid request body"})
	}

	codon, err := h.ledger.CreateCodon(requestContext(c, who), &req, who)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"codonId":       codon.ID,
		"sessionId":     codon.SessionID,
		"correlationId": who.CorrelationID,
	})
}

// AttachOutcome attaches an outcome to an existing codon
// POST /api/sessions/:sessionId/codons/:codonId/outcome
func (h *CodonHandler) AttachOutcome(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return writeError(c, err)
	}
	sessionID := c.Params("sessionId")
	codonID := c.Params("codonId")

	var req models.AttachOutcomeRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, &services.ValidationError{Message: "invalid request body"})
	}

	codon, err := h.ledger.AttachOutcome(requestContext(c, who), sessionID, codonID, &req, who)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"status":        "ok",
		"codonId":       codon.ID,
		"sessionId":     codon.SessionID,
		"correlationId": who.CorrelationID,
	})
}

// Query returns the codons matching the optional filters
// GET /api/codons?riskLevel=&agent=&strategy=
func (h *CodonHandler) Query(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return writeError(c, err)
	}
	filters := models.QueryFilters{
		Agent:     c.Query("agent"),
		RiskLevel: c.Query("riskLevel"),
		Strategy:  c.Query("strategy"),
	}

	result, err := h.query.QueryCodons(requestContext(c, who), filters)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"codons":        result.Codons,
		"count":         len(result.Codons),
		"source":        result.Source,
		"degraded":      result.Degraded,
		"correlationId": who.CorrelationID,
	})
}

// Get returns a single codon
// GET /api/codons/:codonId
func (h *CodonHandler) Get(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return writeError(c, err)
	}

	codon, err := h.query.GetCodon(c.Params("codonId"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"codon":         codon,
		"correlationId": who.CorrelationID,
	})
}

// Timeline returns the history of a single codon
// GET /api/codons/:codonId/timeline
func (h *CodonHandler) Timeline(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return writeError(c, err)
	}
	codonID := c.Params("codonId")

	timeline, err := h.query.TimelineFor(codonID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"codonId":       codonID,
		"timeline":      timeline,
		"correlationId": who.CorrelationID,
	})
}

// Strand returns every codon of a session in insertion order
// GET /api/sessions/:sessionId/strand
func (h *CodonHandler) Strand(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return writeError(c, err)
	}

	strand, err := h.query.SessionStrand(c.Params("sessionId"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"strand":        strand,
		"correlationId": who.CorrelationID,
	})
}
