package models

// AdvancePolicy selects how an advance amount applies to each sender.
type AdvancePolicy string

const (
	// AdvanceFlat applies AmountPerSenderCents to every sender as-is.
	// This is the default.
	AdvanceFlat AdvancePolicy = "flat"

	// AdvanceWeighted scales each sender's credit by their share of the
	// senders' total weight. Selectable variant pending product decision
	// on whether advances should follow member weights at all.
	AdvanceWeighted AdvancePolicy = "weighted"
)

// Advance represents money fronted to a recipient outside the expense
// system: each sender pre-paid AmountPerSenderCents toward future debt to
// the recipient. Advances are created and deleted, never recomputed.
type Advance struct {
	// ID is the unique identifier for the advance (UUID format).
	ID string `json:"id"`

	// GroupID is the group this advance belongs to.
	GroupID string `json:"group_id"`

	// RecipientID is the member the money was fronted to.
	RecipientID string `json:"recipient_id"`

	// SenderIDs are the members who fronted money.
	SenderIDs []string `json:"sender_ids"`

	// AmountPerSenderCents is the per-sender amount in minor units.
	AmountPerSenderCents int64 `json:"amount_per_sender_cents"`

	// Policy selects flat or weight-proportional application.
	Policy AdvancePolicy `json:"policy"`

	// Note is an optional description.
	Note string `json:"note"`

	// CreatedAt is the Unix timestamp when the advance was recorded.
	CreatedAt int64 `json:"created_at"`
}

// DirectPayment is an out-of-band settlement: From handed To the amount
// directly, reducing From's debt to To.
type DirectPayment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string `json:"id"`

	// GroupID is the group this payment belongs to.
	GroupID string `json:"group_id"`

	// FromID is the member who paid.
	FromID string `json:"from_id"`

	// ToID is the member who received.
	ToID string `json:"to_id"`

	// AmountCents is the payment amount in minor units.
	AmountCents int64 `json:"amount_cents"`

	// Note is an optional description.
	Note string `json:"note"`

	// Date is the Unix timestamp of when the payment happened.
	Date int64 `json:"date"`

	// CreatedAt is the Unix timestamp when the payment was recorded.
	CreatedAt int64 `json:"created_at"`
}
