package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrOutOfOrder: event timestamp precedes stored history for its digest
// - ErrChainCorrupt: ledger verification detected a hash or linkage mismatch
// - ErrSealed: ledger is in the read-only safe state and refuses appends
// - ErrUnavailable: collaborator or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrOutOfOrder   = errors.New("out of order")
	ErrChainCorrupt = errors.New("chain corrupt")
	ErrSealed       = errors.New("ledger sealed")
	ErrUnavailable  = errors.New("unavailable")
)
