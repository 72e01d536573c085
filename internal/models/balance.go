package models

// PairBalance is the net amount between two members of a group.
// NetCents is signed from MemberA's perspective: positive means A owes B.
// The aggregator emits each unordered pair once, with MemberA < MemberB
// by ID, and omits pairs that net to zero.
type PairBalance struct {
	MemberA  string `json:"member_a"`
	MemberB  string `json:"member_b"`
	NetCents int64  `json:"net_cents"`
}

// AuditIssue describes one split whose stored amount no longer matches
// what the split policy would produce with current weights.
type AuditIssue struct {
	ExpenseID string `json:"expense_id"`
	MemberID  string `json:"member_id"`

	// StoredCents is the amount currently persisted.
	StoredCents int64 `json:"stored_cents"`

	// ExpectedCents is the amount the policy produces today.
	ExpectedCents int64 `json:"expected_cents"`

	// Err is set when the repair for this expense failed (validation or
	// concurrent modification); empty for plain drift findings.
	Err string `json:"error,omitempty"`
}

// AuditReport is the result of one drift audit over a group.
type AuditReport struct {
	GroupID string `json:"group_id"`

	// Issues are all drifted splits found, including ones whose repair
	// later failed.
	Issues []AuditIssue `json:"issues"`

	// Fixed are the splits repaired in place. Empty when fix was false
	// or nothing drifted.
	Fixed []AuditIssue `json:"fixed"`

	// CheckedExpenses counts expenses whose splits were recomputed.
	CheckedExpenses int `json:"checked_expenses"`
}
