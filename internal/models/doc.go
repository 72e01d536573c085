// Package models defines the core domain models for Tally.
//
// # Money
//
// All monetary amounts are int64 minor units (cents). There is no float64
// money anywhere in the domain: split computation, balance netting and drift
// comparison all happen in integer cents so that every expense reconciles to
// its exact amount.
//
// # Members
//
// A Member is either a registered user or a non-login contact. Downstream
// code never distinguishes the two; the Contact flag exists only so that the
// roster collaborator can render them differently. Each member carries an
// integer weight (family size, default 1) consumed by the Weighted policy.
//
// # Records
//
// An Expense and its Splits are created atomically and the splits always sum
// to the expense amount. Splits are addressed by (expense_id, member_id) and
// are only ever mutated in place by the drift auditor. Each Split owns one
// Payment row tracking the settle state of that leg. Advances and
// DirectPayments are standalone records that reduce pairwise debt; they are
// created and deleted, never recomputed.
package models
