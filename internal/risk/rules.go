package risk

import (
	"strconv"
	"strings"
	"time"

	identitymodels "printtrace/internal/identity/models"
	qualitymodels "printtrace/internal/quality/models"
	riskmodels "printtrace/internal/risk/models"
	usagemodels "printtrace/internal/usage/models"
	id "printtrace/pkg/domain"
)

// FusionConfig carries the combination weights and classification bands.
// UsageWeight and QualityWeight must sum to 1.0; platform config validates
// that at startup.
type FusionConfig struct {
	UsageWeight   float64
	QualityWeight float64
	SuspiciousAt  float64
	HighAt        float64
}

// FusionInput bundles the evidence for one evaluation. Identity is nil when
// no registry lookup was requested.
type FusionInput struct {
	FingerprintDigest id.FingerprintDigest
	CaseID            id.CaseID
	EventTime         time.Time

	Usage    usagemodels.PatternResult
	Quality  qualitymodels.Interpretation
	Identity *identitymodels.IdentityStatus
}

// Fuse combines usage and quality evidence into a verdict. This is pure
// domain logic - no I/O, no side effects, no clock reads.
//
// Combined = usageWeight*usage + qualityWeight*quality on a 0..100 ascending
// risk scale. When quality is unavailable the combined score is the usage
// risk alone and the verdict is flagged, without escalating severity. A
// status mismatch (inactive person, event after the boundary date) forces
// level high; the combined score is reported unmodified.
//
// Reason codes keep canonical order: usage codes, status mismatch, quality
// codes. The explanation is assembled from fixed sentences, one per active
// reason code, so identical inputs yield byte-identical verdicts.
func Fuse(cfg FusionConfig, input FusionInput) riskmodels.RiskVerdict {
	verdict := riskmodels.RiskVerdict{
		FingerprintDigest:  input.FingerprintDigest,
		CaseID:             input.CaseID,
		UsageRisk:          input.Usage.UsageRisk,
		QualityUnavailable: input.Quality.Unavailable,
		IndicatorDigest:    input.Quality.IndicatorDigest,
		Timestamp:          input.EventTime,
	}

	if input.Quality.Unavailable {
		verdict.CombinedScore = input.Usage.UsageRisk
	} else {
		verdict.QualityRisk = input.Quality.QualityRisk
		verdict.CombinedScore = cfg.UsageWeight*input.Usage.UsageRisk + cfg.QualityWeight*input.Quality.QualityRisk
	}

	switch {
	case verdict.CombinedScore >= cfg.HighAt:
		verdict.Level = riskmodels.LevelHigh
	case verdict.CombinedScore >= cfg.SuspiciousAt:
		verdict.Level = riskmodels.LevelSuspicious
	default:
		verdict.Level = riskmodels.LevelNormal
	}

	verdict.ReasonCodes = append(verdict.ReasonCodes, input.Usage.ReasonCodes...)

	if mismatchReason := statusMismatch(input); mismatchReason != "" {
		verdict.StatusMismatch = true
		verdict.Level = riskmodels.LevelHigh
		verdict.ReasonCodes = append(verdict.ReasonCodes, mismatchReason)
	}

	verdict.ReasonCodes = append(verdict.ReasonCodes, input.Quality.ReasonCodes...)

	verdict.Explanation = explain(verdict)
	return verdict
}

// statusMismatch returns the mismatch reason code, or empty when the event is
// consistent with the registry status. Only events strictly after the
// boundary date mismatch; activity on the boundary day itself may legitimately
// be the recording of the status change.
func statusMismatch(input FusionInput) string {
	if input.Identity == nil || !input.Identity.Status.Inactive() {
		return ""
	}
	if !input.EventTime.After(input.Identity.LastKnownActivity) {
		return ""
	}
	switch input.Identity.Status {
	case identitymodels.StatusDeceased:
		return riskmodels.ReasonStatusMismatchDeceased
	case identitymodels.StatusMissing:
		return riskmodels.ReasonStatusMismatchMissing
	}
	return ""
}

// reasonSentences maps each reason code to its fixed explanation sentence.
var reasonSentences = map[string]string{
	usagemodels.ReasonHighFrequency:         "Usage frequency exceeded the configured threshold within the trailing window.",
	usagemodels.ReasonCrossCaseReuse:        "The fingerprint template was used across unrelated cases.",
	usagemodels.ReasonDormantReactivation:   "The fingerprint template was reactivated after a dormancy period.",
	riskmodels.ReasonStatusMismatchDeceased: "Usage was recorded after the person was declared deceased.",
	riskmodels.ReasonStatusMismatchMissing:  "Usage was recorded after the person was reported missing.",
	qualitymodels.ReasonLowLiveness:         "The sample's liveness score is critically low.",
	qualitymodels.ReasonRidgeDegradation:    "Ridge clarity in the sample is severely degraded.",
	qualitymodels.ReasonTextureAnomaly:      "The sample's texture profile is anomalous for genuine skin.",
}

func explain(v riskmodels.RiskVerdict) string {
	var b strings.Builder
	b.WriteString("Risk level ")
	b.WriteString(string(v.Level))
	b.WriteString(" with combined score ")
	b.WriteString(strconv.FormatFloat(v.CombinedScore, 'f', 1, 64))
	b.WriteString(".")
	for _, code := range v.ReasonCodes {
		if sentence, ok := reasonSentences[code]; ok {
			b.WriteString(" ")
			b.WriteString(sentence)
		}
	}
	if v.QualityUnavailable {
		b.WriteString(" Quality assessment was unavailable; this verdict reflects usage signals only and carries degraded confidence.")
	}
	return b.String()
}
