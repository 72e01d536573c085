package calculator

import "errors"

var (
	// ErrNoMembers is returned when a split has nobody to divide among.
	ErrNoMembers = errors.New("must have at least one member")

	// ErrZeroWeightGroup is returned by the Weighted policy when the
	// members' weights sum to zero.
	ErrZeroWeightGroup = errors.New("total member weight is zero")

	// ErrInvalidSplitTotal is returned when caller-supplied shares or
	// item amounts do not sum to the expense amount exactly.
	ErrInvalidSplitTotal = errors.New("shares do not sum to expense amount")

	// ErrInvalidPercentageTotal is returned when percentages do not sum
	// to 100 within 0.01.
	ErrInvalidPercentageTotal = errors.New("percentages do not sum to 100")

	// ErrNegativeAmount is returned for negative expense amounts.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrUnknownPolicy is returned for an unrecognized split policy.
	ErrUnknownPolicy = errors.New("unknown split policy")
)
