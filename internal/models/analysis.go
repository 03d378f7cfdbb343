package models

import "time"

// Placeholder values the AI service uses when a field cannot be determined.
// Merge logic skips these when reconciling narrative and identity fields.
const (
	ValueUnknown      = "Unknown"
	ValueNotInSection = "Not in this section"
)

// Risk ratings, most severe first.
const (
	RiskHigh         = "High"
	RiskMedium       = "Medium"
	RiskLow          = "Low"
	RiskManualReview = "Manual Review Required"
)

// Enforceability decisions, most severe first.
const (
	EnforceabilityNot          = "Not Enforceable"
	EnforceabilityConditional  = "Enforceable with Conditions"
	EnforceabilityEnforceable  = "Enforceable"
	EnforceabilityManualReview = "Manual Review Required"
)

// riskSeverity orders risk ratings; higher value wins a merge.
var riskSeverity = map[string]int{
	RiskHigh:         4,
	RiskMedium:       3,
	RiskLow:          2,
	RiskManualReview: 1,
	ValueUnknown:     0,
}

// enforceabilitySeverity orders enforceability decisions; higher wins.
var enforceabilitySeverity = map[string]int{
	EnforceabilityNot:          4,
	EnforceabilityConditional:  3,
	EnforceabilityEnforceable:  2,
	EnforceabilityManualReview: 1,
	ValueUnknown:               0,
}

// RiskSeverity returns the merge priority of a risk rating. Unrecognized
// values rank below every known rating.
func RiskSeverity(rating string) int {
	if v, ok := riskSeverity[rating]; ok {
		return v
	}
	return -1
}

// EnforceabilitySeverity returns the merge priority of an enforceability
// decision. Unrecognized values rank below every known decision.
func EnforceabilitySeverity(decision string) int {
	if v, ok := enforceabilitySeverity[decision]; ok {
		return v
	}
	return -1
}

// AnalysisRecord is the structured extraction produced for one analyzed
// unit, and after merging, for one document. The field schema is fixed:
// the merge rules and the report columns depend on these exact names.
type AnalysisRecord struct {
	ApplicantNumber        string  `json:"applicant_number"`
	BorrowerName           string  `json:"borrower_name"`
	PropertyAddress        string  `json:"property_address"`
	PropertyType           string  `json:"property_type"`
	State                  string  `json:"state"`
	DocumentDate           string  `json:"document_date"`
	MutationStatus         string  `json:"mutation_status"`
	AdverseEntries         string  `json:"adverse_entries"`
	AdverseRemarks         string  `json:"adverse_remarks"`
	RiskRating             string  `json:"risk_rating"`
	EnforceabilityDecision string  `json:"enforceability_decision"`
	ConfidenceScore        float64 `json:"confidence_score"`
	Rationale              string  `json:"rationale"`
	RecommendedActions     string  `json:"recommended_actions"`

	// Provenance
	DocumentName    string    `json:"document_name,omitempty"`
	ProcessedAt     time.Time `json:"processed_at,omitempty"`
	InputTokens     int       `json:"input_tokens,omitempty"`
	OutputTokens    int       `json:"output_tokens,omitempty"`
	Chunked         bool      `json:"_chunked,omitempty"`
	ChunksProcessed int       `json:"_chunks_processed,omitempty"`
}

// PlaceholderRecord is the row a failed document still contributes so that
// downstream reporting always has one entry per input document.
func PlaceholderRecord(documentName, reason string) AnalysisRecord {
	return AnalysisRecord{
		ApplicantNumber:        ValueUnknown,
		BorrowerName:           ValueUnknown,
		PropertyAddress:        ValueUnknown,
		PropertyType:           ValueUnknown,
		State:                  ValueUnknown,
		DocumentDate:           ValueUnknown,
		MutationStatus:         ValueUnknown,
		AdverseEntries:         ValueUnknown,
		AdverseRemarks:         ValueUnknown,
		RiskRating:             RiskManualReview,
		EnforceabilityDecision: EnforceabilityManualReview,
		ConfidenceScore:        0,
		Rationale:              "Analysis failed: " + reason,
		RecommendedActions:     "Review this document manually",
		DocumentName:           documentName,
		ProcessedAt:            time.Now().UTC(),
	}
}
