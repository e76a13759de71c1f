package models

import "errors"

// Domain-level sentinel errors. These are wrapped with fmt.Errorf("...: %w")
// at each layer boundary and converted to the closed ErrorResponse taxonomy
// only at the orchestrator boundary.
var (
	// Budget errors
	ErrBudgetExceeded = errors.New("budget exceeded")

	// Validation errors
	ErrValidationFailed = errors.New("response failed policy validation")
	ErrNoData           = errors.New("retrieval returned no documents")

	// Provider/model errors
	ErrProviderNotFound  = errors.New("provider not found")
	ErrModelUnavailable  = errors.New("no model in the fallback chain succeeded")

	// Experiment errors
	ErrExperimentNotFound  = errors.New("experiment not found")
	ErrExperimentNotActive = errors.New("experiment is not active")
	ErrInvalidArmWeights   = errors.New("arm weights do not sum to 1.0 within tolerance")
	ErrDuplicateArmID      = errors.New("duplicate arm id")

	// Command dispatch errors
	ErrCommandDisabled  = errors.New("command is disabled by feature flag")
	ErrCommandNotFound  = errors.New("command not recognized")

	// Memory store errors
	ErrMemoryNotFound = errors.New("memory record not found")
)
