package models

// PaymentStatus is the settle state of one split leg.
type PaymentStatus string

const (
	// PaymentPending means the debtor has not declared payment yet.
	PaymentPending PaymentStatus = "pending"

	// PaymentPaid means the debtor declared they paid; awaiting the
	// payer's confirmation.
	PaymentPaid PaymentStatus = "paid"

	// PaymentApproved means the payer (or an admin) confirmed receipt.
	PaymentApproved PaymentStatus = "approved"

	// PaymentRejected means the payer (or an admin) disputed the
	// declaration. The next Pay action re-opens the cycle.
	PaymentRejected PaymentStatus = "rejected"
)

// Settled reports whether a leg in this status is excluded from balance
// netting. Only Approved counts: a declared-but-unconfirmed payment still
// shows as owed until the payer signs off. This is the single canonical
// predicate; balance code must not test statuses directly.
func (s PaymentStatus) Settled() bool {
	return s == PaymentApproved
}

// Payment tracks the settle state of one split. One row per Split,
// keyed by (ExpenseID, MemberID).
type Payment struct {
	ExpenseID string `json:"expense_id"`
	MemberID  string `json:"member_id"`

	Status PaymentStatus `json:"status"`

	// DeclaredBy is the member who declared the payment (always the
	// debtor). Empty while Pending.
	DeclaredBy string `json:"declared_by"`

	// ResolvedBy is the member who approved or rejected. Empty until a
	// resolution happens.
	ResolvedBy string `json:"resolved_by"`

	// RejectReason is required on rejection, empty otherwise.
	RejectReason string `json:"reject_reason"`

	// UpdatedAt is the Unix timestamp of the last transition.
	UpdatedAt int64 `json:"updated_at"`
}
