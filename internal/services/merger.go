package services

import (
	"strings"
	"time"

	"github.com/docurisk/backend/internal/models"
)

// MergeRecords reconciles the per-unit analysis records of one document into
// a single record. Returns nil for an empty input and the record itself
// (with unit provenance) for a singleton.
//
// Field rules:
//   - severity fields: most severe value wins, by fixed priority order
//   - boolean-as-text flags: "yes" from any unit wins
//   - narrative fields: concatenated with "; ", placeholders skipped,
//     exact repeats deduplicated
//   - identity fields: first non-placeholder value in unit order wins
//   - confidence: arithmetic mean across units
func MergeRecords(records []models.AnalysisRecord) *models.AnalysisRecord {
	if len(records) == 0 {
		return nil
	}
	if len(records) == 1 {
		merged := records[0]
		if merged.ChunksProcessed == 0 {
			merged.ChunksProcessed = 1
		}
		return &merged
	}

	merged := models.AnalysisRecord{
		RiskRating:             models.ValueUnknown,
		EnforceabilityDecision: models.ValueUnknown,
		AdverseEntries:         models.ValueUnknown,
	}

	var confidenceSum float64
	var confidenceCount int
	var inputTokens, outputTokens int

	for _, r := range records {
		// Severity: a later unit only overrides when strictly more severe.
		if models.RiskSeverity(r.RiskRating) > models.RiskSeverity(merged.RiskRating) {
			merged.RiskRating = r.RiskRating
		}
		if models.EnforceabilitySeverity(r.EnforceabilityDecision) > models.EnforceabilitySeverity(merged.EnforceabilityDecision) {
			merged.EnforceabilityDecision = r.EnforceabilityDecision
		}

		// Adverse entries: yes from any unit wins.
		if strings.EqualFold(r.AdverseEntries, "yes") {
			merged.AdverseEntries = "yes"
		} else if strings.EqualFold(r.AdverseEntries, "no") && merged.AdverseEntries == models.ValueUnknown {
			merged.AdverseEntries = "no"
		}

		// Identity fields: first non-placeholder wins.
		takeFirst(&merged.ApplicantNumber, r.ApplicantNumber)
		takeFirst(&merged.BorrowerName, r.BorrowerName)
		takeFirst(&merged.PropertyType, r.PropertyType)
		takeFirst(&merged.State, r.State)
		takeFirst(&merged.DocumentDate, r.DocumentDate)
		takeFirst(&merged.MutationStatus, r.MutationStatus)

		// Narrative fields: accumulate.
		merged.PropertyAddress = appendNarrative(merged.PropertyAddress, r.PropertyAddress)
		merged.AdverseRemarks = appendNarrative(merged.AdverseRemarks, r.AdverseRemarks)
		merged.Rationale = appendNarrative(merged.Rationale, r.Rationale)
		merged.RecommendedActions = appendNarrative(merged.RecommendedActions, r.RecommendedActions)

		// A zero score is a unit that reported no confidence at all; it
		// must not drag the mean down.
		if r.ConfidenceScore > 0 {
			confidenceSum += r.ConfidenceScore
			confidenceCount++
		}
		inputTokens += r.InputTokens
		outputTokens += r.OutputTokens

		if merged.DocumentName == "" {
			merged.DocumentName = r.DocumentName
		}
	}

	fillPlaceholders(&merged)

	if confidenceCount > 0 {
		merged.ConfidenceScore = confidenceSum / float64(confidenceCount)
	}
	merged.InputTokens = inputTokens
	merged.OutputTokens = outputTokens
	merged.Chunked = true
	merged.ChunksProcessed = len(records)
	merged.ProcessedAt = time.Now().UTC()
	return &merged
}

func isPlaceholder(value string) bool {
	switch strings.TrimSpace(value) {
	case "", models.ValueUnknown, models.ValueNotInSection:
		return true
	}
	return false
}

// takeFirst sets dst once, from the first non-placeholder value seen.
func takeFirst(dst *string, value string) {
	if *dst == "" || isPlaceholder(*dst) {
		if !isPlaceholder(value) {
			*dst = value
		}
	}
}

// appendNarrative joins narrative fragments with a semicolon, skipping
// placeholders and exact repeats of already-collected fragments.
func appendNarrative(existing, value string) string {
	if isPlaceholder(value) {
		return existing
	}
	value = strings.TrimSpace(value)
	if existing == "" {
		return value
	}
	for _, part := range strings.Split(existing, "; ") {
		if part == value {
			return existing
		}
	}
	return existing + "; " + value
}

// fillPlaceholders restores "Unknown" on fields no unit could resolve.
func fillPlaceholders(r *models.AnalysisRecord) {
	for _, field := range []*string{
		&r.ApplicantNumber, &r.BorrowerName, &r.PropertyAddress,
		&r.PropertyType, &r.State, &r.DocumentDate,
		&r.MutationStatus, &r.AdverseRemarks,
		&r.Rationale, &r.RecommendedActions,
	} {
		if *field == "" {
			*field = models.ValueUnknown
		}
	}
}
