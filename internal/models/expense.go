package models

// SplitPolicy selects how an expense amount is divided among members.
type SplitPolicy string

const (
	// SplitEqual divides the amount evenly among all listed members.
	SplitEqual SplitPolicy = "equal"

	// SplitWeighted divides the amount proportionally to member weights.
	SplitWeighted SplitPolicy = "weighted"

	// SplitCustom uses caller-supplied per-member amounts.
	SplitCustom SplitPolicy = "custom"

	// SplitPercentage divides the amount by caller-supplied percentages.
	SplitPercentage SplitPolicy = "percentage"

	// SplitItemwise sums per-item assignments into per-member shares.
	SplitItemwise SplitPolicy = "itemwise"
)

// Valid reports whether p is a known split policy.
func (p SplitPolicy) Valid() bool {
	switch p {
	case SplitEqual, SplitWeighted, SplitCustom, SplitPercentage, SplitItemwise:
		return true
	}
	return false
}

// Recomputable reports whether stored splits for this policy can be rebuilt
// from the current roster alone. Equal and Weighted depend only on membership
// and weights; Percentage keeps its percent basis on each split. Custom and
// Itemwise shares are terminal: the stored amounts are the source of truth.
func (p SplitPolicy) Recomputable() bool {
	switch p {
	case SplitEqual, SplitWeighted, SplitPercentage:
		return true
	}
	return false
}

// Expense represents one shared cost paid up front by a single member.
// Expenses are immutable after creation except for in-place split repair
// by the drift auditor.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string `json:"id"`

	// GroupID is the group this expense belongs to.
	GroupID string `json:"group_id"`

	// PayerID is the member who fronted the money.
	PayerID string `json:"payer_id"`

	// Description is a human-readable label (e.g. "Groceries").
	Description string `json:"description"`

	// AmountCents is the full expense amount in minor units.
	AmountCents int64 `json:"amount_cents"`

	// Policy is the split policy the amount was divided with.
	Policy SplitPolicy `json:"policy"`

	// Date is the Unix timestamp of when the expense occurred.
	Date int64 `json:"date"`

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64 `json:"created_at"`

	// Version increments on every write touching the expense or its
	// splits. The drift auditor uses it as an optimistic lock.
	Version int64 `json:"version"`

	// Splits are the per-member shares. Always sum to AmountCents.
	Splits []Split `json:"splits"`
}

// Split is one member's allocated share of one expense. Unique per
// (ExpenseID, MemberID).
type Split struct {
	ExpenseID string `json:"expense_id"`
	MemberID  string `json:"member_id"`

	// AmountCents is this member's share in minor units.
	AmountCents int64 `json:"amount_cents"`

	// PercentBP is the percentage basis in basis points (10000 = 100%)
	// for Percentage-policy expenses; zero otherwise. Stored so the
	// auditor can recompute percentage splits.
	PercentBP int64 `json:"percent_bp"`
}
