// Package domain holds the identifier value types shared across the engine.
//
// Identifiers are validated at trust boundaries via the Parse* constructors;
// direct casting bypasses validation and is reserved for test fixtures and
// store row mapping.
package domain

import (
	"regexp"
	"strings"

	dErrors "printtrace/pkg/domain-errors"
)

// FingerprintDigest is the privacy-preserving derived identifier for a
// fingerprint template. It is a lowercase hex string, never a raw image.
// Invariant: 32 to 64 hex characters (SHA-256 truncations and full digests).
type FingerprintDigest string

var digestPattern = regexp.MustCompile(`^[0-9a-f]{32,64}$`)

// ParseFingerprintDigest constructs a FingerprintDigest from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, mixed-case, or not
// hex of the expected length.
func ParseFingerprintDigest(s string) (FingerprintDigest, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "fingerprint_digest cannot be empty")
	}
	if !digestPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "fingerprint_digest must be 32-64 lowercase hex characters")
	}
	return FingerprintDigest(s), nil
}

func (d FingerprintDigest) String() string { return string(d) }

// PersonID references an identity record held by the external identity
// collaborator. Opaque to this core beyond non-emptiness.
type PersonID string

func ParsePersonID(s string) (PersonID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "person_id cannot be empty")
	}
	if len(s) > 64 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "person_id must be at most 64 characters")
	}
	return PersonID(s), nil
}

func (p PersonID) String() string { return string(p) }

// CaseID identifies the institutional case or record a usage event belongs to.
type CaseID string

func ParseCaseID(s string) (CaseID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "case_id cannot be empty")
	}
	if len(s) > 64 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "case_id must be at most 64 characters")
	}
	return CaseID(s), nil
}

func (c CaseID) String() string { return string(c) }

// Namespace returns the case namespace: the portion before the first '-'.
// Cases sharing a namespace within the same sector are considered related for
// reuse analysis; a case ID without a separator is its own namespace.
func (c CaseID) Namespace() string {
	if idx := strings.Index(string(c), "-"); idx > 0 {
		return string(c)[:idx]
	}
	return string(c)
}

// Sector classifies the institutional context a usage event occurred in.
type Sector string

const (
	SectorForensic Sector = "forensic"
	SectorHospital Sector = "hospital"
	SectorBorder   Sector = "border"
	SectorBanking  Sector = "banking"
	SectorUnknown  Sector = "unknown"
)

// validSectors is the single source of truth for supported sectors.
var validSectors = map[Sector]bool{
	SectorForensic: true,
	SectorHospital: true,
	SectorBorder:   true,
	SectorBanking:  true,
	SectorUnknown:  true,
}

// ParseSector constructs a Sector from external input. Empty input maps to
// SectorUnknown; unsupported values are rejected.
func ParseSector(s string) (Sector, error) {
	if s == "" {
		return SectorUnknown, nil
	}
	sec := Sector(strings.ToLower(strings.TrimSpace(s)))
	if !validSectors[sec] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported sector %q", s)
	}
	return sec, nil
}

func (s Sector) String() string { return string(s) }
