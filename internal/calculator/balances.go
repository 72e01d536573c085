package calculator

import (
	"slices"
	"strings"

	"github.com/mmynk/tally/internal/models"
)

// SplitLeg is one split plus the settle state of its payment, the minimal
// view the aggregator needs.
type SplitLeg struct {
	MemberID    string
	AmountCents int64
	Status      models.PaymentStatus
}

// ExpenseBalance is an expense reduced to what balance netting needs.
type ExpenseBalance struct {
	PayerID string
	Legs    []SplitLeg
}

// AdvanceSender is one sender leg of an advance, with the sender's current
// weight for the weight-proportional policy.
type AdvanceSender struct {
	MemberID string
	Weight   int
}

// AdvanceBalance is an advance reduced to what balance netting needs.
type AdvanceBalance struct {
	RecipientID          string
	AmountPerSenderCents int64
	Policy               models.AdvancePolicy
	Senders              []AdvanceSender
}

// DirectPaymentBalance is a direct payment reduced to what balance netting
// needs.
type DirectPaymentBalance struct {
	FromID      string
	ToID        string
	AmountCents int64
}

// ComputeGroupBalances nets every debt and credit in a group down to one
// signed amount per member pair. It is a pure function of the records passed
// in; callers recompute on every query rather than maintaining the result
// incrementally, so the output always reflects the latest payment, advance
// and direct-payment state.
//
// Unsettled split legs add debt from the split's member toward the payer.
// Advances and direct payments subtract from the sender's debt toward the
// recipient. Pairs are collapsed so that net[A][B] == -net[B][A] exactly,
// reported once with MemberA < MemberB, and dropped when they net to zero.
func ComputeGroupBalances(expenses []ExpenseBalance, advances []AdvanceBalance, payments []DirectPaymentBalance) []models.PairBalance {
	// owed[debtor][creditor] accumulates directional amounts.
	owed := make(map[string]map[string]int64)
	add := func(from, to string, cents int64) {
		if from == to || cents == 0 {
			return
		}
		if owed[from] == nil {
			owed[from] = make(map[string]int64)
		}
		owed[from][to] += cents
	}

	for _, e := range expenses {
		for _, leg := range e.Legs {
			if leg.MemberID == e.PayerID {
				continue
			}
			if leg.Status.Settled() {
				continue
			}
			add(leg.MemberID, e.PayerID, leg.AmountCents)
		}
	}

	for _, a := range advances {
		for sender, cents := range advanceCredits(a) {
			add(sender, a.RecipientID, -cents)
		}
	}

	for _, p := range payments {
		add(p.FromID, p.ToID, -p.AmountCents)
	}

	// Collapse directional amounts to one net per unordered pair.
	type pair struct{ a, b string }
	nets := make(map[pair]int64)
	for from, row := range owed {
		for to, cents := range row {
			if strings.Compare(from, to) < 0 {
				nets[pair{from, to}] += cents
			} else {
				nets[pair{to, from}] -= cents
			}
		}
	}

	balances := make([]models.PairBalance, 0, len(nets))
	for p, net := range nets {
		if net == 0 {
			continue
		}
		balances = append(balances, models.PairBalance{
			MemberA:  p.a,
			MemberB:  p.b,
			NetCents: net,
		})
	}
	slices.SortFunc(balances, func(x, y models.PairBalance) int {
		if c := strings.Compare(x.MemberA, y.MemberA); c != 0 {
			return c
		}
		return strings.Compare(x.MemberB, y.MemberB)
	})
	return balances
}

// advanceCredits resolves one advance into per-sender credit amounts.
// Flat credits every sender the per-sender amount unchanged. Weighted
// redistributes the advance total proportionally to sender weights, with
// leftover cents handed out in ascending ID order. A weighted advance whose
// senders carry no weight degrades to flat rather than vanishing.
func advanceCredits(a AdvanceBalance) map[string]int64 {
	credits := make(map[string]int64, len(a.Senders))

	if a.Policy != models.AdvanceWeighted {
		for _, s := range a.Senders {
			credits[s.MemberID] += a.AmountPerSenderCents
		}
		return credits
	}

	var totalWeight int64
	for _, s := range a.Senders {
		if s.Weight > 0 {
			totalWeight += int64(s.Weight)
		}
	}
	if totalWeight == 0 {
		for _, s := range a.Senders {
			credits[s.MemberID] += a.AmountPerSenderCents
		}
		return credits
	}

	total := a.AmountPerSenderCents * int64(len(a.Senders))
	ids := make([]string, 0, len(a.Senders))
	weights := make(map[string]int64, len(a.Senders))
	for _, s := range a.Senders {
		ids = append(ids, s.MemberID)
		if s.Weight > 0 {
			weights[s.MemberID] = int64(s.Weight)
		}
	}
	slices.Sort(ids)

	var allocated int64
	var weighted []string
	for _, id := range ids {
		share := total * weights[id] / totalWeight
		credits[id] = share
		allocated += share
		if weights[id] > 0 {
			weighted = append(weighted, id)
		}
	}
	distributeRemainder(credits, weighted, total-allocated)
	return credits
}
