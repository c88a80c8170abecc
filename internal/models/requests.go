package models

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// requestValidate is shared by all request types in this package
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	requestValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = requestValidate.RegisterValidation("notblank", validateNotBlank)
}

// validateNotBlank rejects strings that are empty after trimming whitespace
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// CreateCodonRequest is the body of POST /api/codons
type CreateCodonRequest struct {
	SessionID          string              `json:"sessionId" validate:"notblank,max=256"`
	Content            string              `json:"content" validate:"notblank,max=65536"`
	PromptID           string              `json:"promptId" validate:"notblank,max=256"`
	Type               string              `json:"type,omitempty" validate:"max=128"`
	Origin             string              `json:"origin,omitempty" validate:"max=128"`
	SemanticIndex      []string            `json:"semanticIndex,omitempty" validate:"max=64,dive,max=256"`
	TemporalCluster    string              `json:"temporalCluster,omitempty" validate:"max=128"`
	ContextAttribution *ContextAttribution `json:"contextAttribution,omitempty"`
	RiskLevel          string              `json:"riskLevel,omitempty" validate:"max=64"`
}

// Validate checks the request against its struct tags
func (r *CreateCodonRequest) Validate() error {
	return requestValidate.Struct(r)
}

// Fields converts the request into ledger store input
func (r *CreateCodonRequest) Fields() CodonFields {
	return CodonFields{
		Content:            r.Content,
		PromptID:           r.PromptID,
		Type:               r.Type,
		Origin:             r.Origin,
		SemanticIndex:      r.SemanticIndex,
		TemporalCluster:    r.TemporalCluster,
		ContextAttribution: r.ContextAttribution,
		RiskLevel:          r.RiskLevel,
	}
}

// AttachOutcomeRequest is the body of the outcome endpoint
type AttachOutcomeRequest struct {
	Outcome map[string]any `json:"outcome" validate:"required,min=1"`
}

// Validate checks the request against its struct tags
func (r *AttachOutcomeRequest) Validate() error {
	return requestValidate.Struct(r)
}
