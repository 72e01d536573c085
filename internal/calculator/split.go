// Package calculator implements the money math of Tally: dividing an
// expense amount into exact per-member shares and netting pairwise group
// balances. Everything operates on int64 minor units (cents); every result
// reconciles to its input amount cent-for-cent or fails.
package calculator

import (
	"fmt"
	"math"
	"slices"

	"github.com/mmynk/tally/internal/models"
)

// SplitMember is the slice of a group roster the calculator needs.
type SplitMember struct {
	ID     string
	Weight int
}

// SplitItem is one line item of an itemwise expense. Items with no
// assignees are shared by every member of the expense.
type SplitItem struct {
	Description string
	AmountCents int64
	MemberIDs   []string
}

// SplitRequest carries one expense amount plus the policy-specific inputs
// needed to divide it.
type SplitRequest struct {
	AmountCents int64
	Policy      models.SplitPolicy
	Members     []SplitMember

	// CustomCents holds explicit per-member shares for SplitCustom.
	CustomCents map[string]int64

	// PercentBP holds per-member percentages in basis points
	// (10000 = 100%) for SplitPercentage.
	PercentBP map[string]int64

	// Items holds the line items for SplitItemwise.
	Items []SplitItem
}

// ComputeSplits divides the request amount into per-member shares.
// The returned shares always sum to AmountCents exactly. Remainder cents
// are handed out one at a time in ascending member ID order so the
// distribution is deterministic and no single member absorbs the whole
// rounding gap.
func ComputeSplits(req SplitRequest) (map[string]int64, error) {
	if req.AmountCents < 0 {
		return nil, ErrNegativeAmount
	}
	if len(req.Members) == 0 {
		return nil, ErrNoMembers
	}

	switch req.Policy {
	case models.SplitEqual:
		return splitEqual(req.AmountCents, req.Members)
	case models.SplitWeighted:
		return splitWeighted(req.AmountCents, req.Members)
	case models.SplitCustom:
		return splitCustom(req.AmountCents, req.Members, req.CustomCents)
	case models.SplitPercentage:
		return splitPercentage(req.AmountCents, req.Members, req.PercentBP)
	case models.SplitItemwise:
		return splitItemwise(req.AmountCents, req.Members, req.Items)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, req.Policy)
	}
}

// PercentToBasisPoints converts caller-supplied percentages to basis points
// for storage and computation. Percentages must sum to 100 within 0.01.
func PercentToBasisPoints(percentages map[string]float64) (map[string]int64, error) {
	bp := make(map[string]int64, len(percentages))
	var total int64
	for id, pct := range percentages {
		if pct < 0 {
			return nil, fmt.Errorf("%w: negative percentage for member %s", ErrInvalidPercentageTotal, id)
		}
		v := int64(math.Round(pct * 100))
		bp[id] = v
		total += v
	}
	// 0.01% tolerance is one basis point.
	if total < 9999 || total > 10001 {
		return nil, fmt.Errorf("%w: got %d.%02d%%", ErrInvalidPercentageTotal, total/100, total%100)
	}
	return bp, nil
}

// sortedIDs returns the member IDs in ascending order, the canonical
// remainder-distribution order.
func sortedIDs(members []SplitMember) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	slices.Sort(ids)
	return ids
}

// distributeRemainder hands out leftover cents one at a time, cycling
// through ids in order until the remainder is exhausted.
func distributeRemainder(shares map[string]int64, ids []string, remainder int64) {
	for i := 0; remainder > 0; i = (i + 1) % len(ids) {
		shares[ids[i]]++
		remainder--
	}
}

func splitEqual(amount int64, members []SplitMember) (map[string]int64, error) {
	ids := sortedIDs(members)
	n := int64(len(ids))
	base := amount / n

	shares := make(map[string]int64, len(ids))
	for _, id := range ids {
		shares[id] = base
	}
	distributeRemainder(shares, ids, amount-base*n)
	return shares, nil
}

func splitWeighted(amount int64, members []SplitMember) (map[string]int64, error) {
	weights := make(map[string]int64, len(members))
	var total int64
	for _, m := range members {
		if m.Weight < 0 {
			return nil, fmt.Errorf("negative weight for member %s", m.ID)
		}
		weights[m.ID] = int64(m.Weight)
		total += int64(m.Weight)
	}
	if total == 0 {
		return nil, ErrZeroWeightGroup
	}

	unit := amount / total
	var allocated int64
	shares := make(map[string]int64, len(members))
	var nonzero []string
	for _, id := range sortedIDs(members) {
		share := unit * weights[id]
		shares[id] = share
		allocated += share
		if weights[id] > 0 {
			nonzero = append(nonzero, id)
		}
	}
	// Leftover cents go only to members actually carrying weight.
	distributeRemainder(shares, nonzero, amount-allocated)
	return shares, nil
}

func splitCustom(amount int64, members []SplitMember, custom map[string]int64) (map[string]int64, error) {
	known := make(map[string]bool, len(members))
	for _, m := range members {
		known[m.ID] = true
	}

	var total int64
	shares := make(map[string]int64, len(custom))
	for id, cents := range custom {
		if !known[id] {
			return nil, fmt.Errorf("custom share for unknown member %s", id)
		}
		if cents < 0 {
			return nil, fmt.Errorf("%w: negative share for member %s", ErrInvalidSplitTotal, id)
		}
		shares[id] = cents
		total += cents
	}
	if total != amount {
		return nil, fmt.Errorf("%w: shares sum to %d, expense is %d", ErrInvalidSplitTotal, total, amount)
	}
	return shares, nil
}

// splitPercentage allocates floor(amount*bp/totalBP) per member and then
// completes the total largest-remainder style, in ascending ID order. Using
// the actual basis-point total as the denominator keeps the result exact
// even at the edges of the 0.01% tolerance.
func splitPercentage(amount int64, members []SplitMember, bp map[string]int64) (map[string]int64, error) {
	var totalBP int64
	for id, v := range bp {
		if v < 0 {
			return nil, fmt.Errorf("%w: negative percentage for member %s", ErrInvalidPercentageTotal, id)
		}
		totalBP += v
	}
	if totalBP < 9999 || totalBP > 10001 {
		return nil, fmt.Errorf("%w: got %d.%02d%%", ErrInvalidPercentageTotal, totalBP/100, totalBP%100)
	}

	ids := make([]string, 0, len(bp))
	for id := range bp {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var allocated int64
	shares := make(map[string]int64, len(ids))
	var positive []string
	for _, id := range ids {
		share := amount * bp[id] / totalBP
		shares[id] = share
		allocated += share
		if bp[id] > 0 {
			positive = append(positive, id)
		}
	}
	if len(positive) == 0 {
		return nil, fmt.Errorf("%w: all percentages are zero", ErrInvalidPercentageTotal)
	}
	distributeRemainder(shares, positive, amount-allocated)
	return shares, nil
}

// splitItemwise computes per-member shares as the sum of each member's
// per-item portions. Every item splits equally among its assignees;
// unassigned items are shared by all members. Item amounts must sum to the
// expense amount so the invariant holds without a fudge step.
func splitItemwise(amount int64, members []SplitMember, items []SplitItem) (map[string]int64, error) {
	allIDs := sortedIDs(members)
	known := make(map[string]bool, len(allIDs))
	for _, id := range allIDs {
		known[id] = true
	}

	var itemTotal int64
	for _, item := range items {
		if item.AmountCents < 0 {
			return nil, fmt.Errorf("%w: negative amount for item %q", ErrInvalidSplitTotal, item.Description)
		}
		itemTotal += item.AmountCents
	}
	if itemTotal != amount {
		return nil, fmt.Errorf("%w: items sum to %d, expense is %d", ErrInvalidSplitTotal, itemTotal, amount)
	}

	shares := make(map[string]int64, len(allIDs))
	for _, id := range allIDs {
		shares[id] = 0
	}

	for _, item := range items {
		assignees := item.MemberIDs
		if len(assignees) == 0 {
			assignees = allIDs
		} else {
			for _, id := range assignees {
				if !known[id] {
					return nil, fmt.Errorf("item %q assigned to unknown member %s", item.Description, id)
				}
			}
			assignees = slices.Clone(assignees)
			slices.Sort(assignees)
		}

		n := int64(len(assignees))
		base := item.AmountCents / n
		for _, id := range assignees {
			shares[id] += base
		}
		remainder := item.AmountCents - base*n
		for i := int64(0); i < remainder; i++ {
			shares[assignees[i%n]]++
		}
	}
	return shares, nil
}
