package claim

import (
	"fmt"
	"strings"
)

// #region input-error

// InputError describes a malformed input field that was replaced by a default.
// It is recovered locally and never aborts a negotiation.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// RiskIndicator is the audit risk indicator recorded for the defaulted field.
func (e *InputError) RiskIndicator() string {
	return "input_defaulted:" + e.Field
}

// #endregion input-error

// #region configuration-error

// ConfigurationError is fatal: a required threshold or table entry is missing.
type ConfigurationError struct {
	Key    string
	Detail string
}

func (e *ConfigurationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("configuration error: missing %s", e.Key)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Detail)
}

// #endregion configuration-error

// #region policy-not-found

// PolicyNotFoundError is returned by policy sources for unknown policy numbers.
type PolicyNotFoundError struct {
	PolicyNumber string
}

func (e *PolicyNotFoundError) Error() string {
	return fmt.Sprintf("policy %q not found", e.PolicyNumber)
}

// #endregion policy-not-found

// #region compliance-violation

// ComplianceViolationError carries the violations of a non-compliant settlement.
// Inside the pipeline violations are decision outputs, not failures; this type
// is for callers that want a compliance check to gate an action.
type ComplianceViolationError struct {
	Violations []string
}

func (e *ComplianceViolationError) Error() string {
	return fmt.Sprintf("compliance violation: %s", strings.Join(e.Violations, "; "))
}

// #endregion compliance-violation

// #region settlement-error

// SettlementCalculationError means the settlement inputs cannot produce an amount.
type SettlementCalculationError struct {
	Reason string
}

func (e *SettlementCalculationError) Error() string {
	return "settlement calculation: " + e.Reason
}

// #endregion settlement-error
