package handler

import (
	"strings"
	"time"

	qualitymodels "printtrace/internal/quality/models"
	"printtrace/internal/risk"
	id "printtrace/pkg/domain"
	dErrors "printtrace/pkg/domain-errors"
)

// EvaluateRequest is the HTTP request body for POST /analysis/evaluate.
type EvaluateRequest struct {
	FingerprintDigest string                          `json:"fingerprint_digest"`
	CaseID            string                          `json:"case_id"`
	Sector            string                          `json:"sector"`
	PersonID          string                          `json:"person_id,omitempty"`
	Timestamp         time.Time                       `json:"timestamp"`
	QualityIndicator  *qualitymodels.QualityIndicator `json:"quality_indicator,omitempty"`

	// Parsed values (populated by Validate)
	parsedDigest id.FingerprintDigest
	parsedCase   id.CaseID
	parsedSector id.Sector
	parsedPerson id.PersonID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	digest, err := id.ParseFingerprintDigest(strings.TrimSpace(r.FingerprintDigest))
	if err != nil {
		return err
	}
	r.parsedDigest = digest

	caseID, err := id.ParseCaseID(strings.TrimSpace(r.CaseID))
	if err != nil {
		return err
	}
	r.parsedCase = caseID

	sector, err := id.ParseSector(strings.TrimSpace(r.Sector))
	if err != nil {
		return err
	}
	r.parsedSector = sector

	if person := strings.TrimSpace(r.PersonID); person != "" {
		parsed, err := id.ParsePersonID(person)
		if err != nil {
			return err
		}
		r.parsedPerson = parsed
	}

	if r.QualityIndicator != nil {
		if err := r.QualityIndicator.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ToInput builds the domain input. A zero timestamp falls back to the
// request-scoped time.
func (r *EvaluateRequest) ToInput(now time.Time) risk.EvaluateInput {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = now
	}
	return risk.EvaluateInput{
		FingerprintDigest: r.parsedDigest,
		CaseID:            r.parsedCase,
		Sector:            r.parsedSector,
		PersonID:          r.parsedPerson,
		Timestamp:         ts.UTC(),
		Indicator:         r.QualityIndicator,
	}
}
