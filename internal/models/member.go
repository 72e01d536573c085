package models

// Member represents one participant in a group, either a registered user or
// a non-login contact. Code consuming members must not care which.
type Member struct {
	// ID is the unique identifier for the member (UUID format).
	ID string `json:"id"`

	// GroupID is the group this member belongs to.
	GroupID string `json:"group_id"`

	// Name is the display name.
	Name string `json:"name"`

	// Weight is the split multiplier used by the Weighted policy
	// (e.g. family size). Non-negative; defaults to 1.
	Weight int `json:"weight"`

	// Contact is true for members without a login account.
	Contact bool `json:"contact"`

	// Active is false once the member has been removed from the group.
	// Inactive members keep their historical splits.
	Active bool `json:"active"`

	// CreatedAt is the Unix timestamp when the member was added.
	CreatedAt int64 `json:"created_at"`
}

// Group represents a set of members who split expenses together.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g. "Roommates", "Ski Trip").
	Name string `json:"name"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"created_at"`
}
