// Package models defines the quality assessment types. A QualityIndicator is
// ephemeral input: it is interpreted, digested, and discarded. Only the keyed
// digest survives into persisted verdicts.
package models

import (
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	dErrors "printtrace/pkg/domain-errors"
)

// Quality-derived reason codes. Stable identifiers, part of the verdict contract.
const (
	ReasonLowLiveness      = "LOW_LIVENESS"
	ReasonRidgeDegradation = "RIDGE_DEGRADATION"
	ReasonTextureAnomaly   = "TEXTURE_ANOMALY"
)

// QualityIndicator is the classifier's assessment of a captured sample.
// All numeric axes are in [0,1], higher is better.
type QualityIndicator struct {
	Liveness        float64  `json:"liveness"`
	RidgeClarity    float64  `json:"ridge_clarity"`
	Texture         float64  `json:"texture"`
	Confidence      float64  `json:"confidence"`
	DistortionFlags []string `json:"distortion_flags,omitempty"`
}

// UnmarshalJSON requires every numeric axis to be present. A zero axis is a
// meaningful worst-case reading, so an omitted field must not decode to one.
func (q *QualityIndicator) UnmarshalJSON(data []byte) error {
	var wire struct {
		Liveness        *float64 `json:"liveness"`
		RidgeClarity    *float64 `json:"ridge_clarity"`
		Texture         *float64 `json:"texture"`
		Confidence      *float64 `json:"confidence"`
		DistortionFlags []string `json:"distortion_flags"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	for _, axis := range []struct {
		name  string
		value *float64
	}{
		{"liveness", wire.Liveness},
		{"ridge_clarity", wire.RidgeClarity},
		{"texture", wire.Texture},
		{"confidence", wire.Confidence},
	} {
		if axis.value == nil {
			return dErrors.Newf(dErrors.CodeValidation, "%s is required", axis.name)
		}
	}
	q.Liveness = *wire.Liveness
	q.RidgeClarity = *wire.RidgeClarity
	q.Texture = *wire.Texture
	q.Confidence = *wire.Confidence
	q.DistortionFlags = wire.DistortionFlags
	return nil
}

// Validate checks every numeric axis is within [0,1].
func (q QualityIndicator) Validate() error {
	for _, axis := range []struct {
		name  string
		value float64
	}{
		{"liveness", q.Liveness},
		{"ridge_clarity", q.RidgeClarity},
		{"texture", q.Texture},
		{"confidence", q.Confidence},
	} {
		if axis.value < 0 || axis.value > 1 {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be in [0,1], got %v", axis.name, axis.value)
		}
	}
	return nil
}

// DistinctDistortions returns the deduplicated, sorted distortion flags.
func (q QualityIndicator) DistinctDistortions() []string {
	if len(q.DistortionFlags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(q.DistortionFlags))
	out := make([]string, 0, len(q.DistortionFlags))
	for _, f := range q.DistortionFlags {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// DigestWithKey computes a keyed BLAKE2b-256 digest over a canonical
// serialization of the indicator. The same indicator and key always produce
// the same digest; the raw indicator cannot be recovered from it.
func (q QualityIndicator) DigestWithKey(key []byte) (string, error) {
	h, err := blake2b.New256(key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "indicator digest key rejected")
	}
	fields := []string{
		strconv.FormatFloat(q.Liveness, 'f', -1, 64),
		strconv.FormatFloat(q.RidgeClarity, 'f', -1, 64),
		strconv.FormatFloat(q.Texture, 'f', -1, 64),
		strconv.FormatFloat(q.Confidence, 'f', -1, 64),
	}
	fields = append(fields, q.DistinctDistortions()...)
	h.Write([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Interpretation is the quality interpreter's output. When Unavailable is
// true the classifier could not be reached and QualityRisk carries no meaning.
type Interpretation struct {
	QualityRisk     float64  `json:"quality_risk"`
	ReasonCodes     []string `json:"reason_codes,omitempty"`
	Unavailable     bool     `json:"unavailable"`
	IndicatorDigest string   `json:"indicator_digest,omitempty"`
}
