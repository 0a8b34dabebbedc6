// Package ledger is the single writer of user balances.
//
// Every method runs inside the caller's *sql.Tx so that a stake, a payout and
// the state change that caused them commit or roll back together. Methods
// return the balance snapshots they produced; publish them after commit.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/fastprodman/wagerengine/internal/errs"
	"github.com/fastprodman/wagerengine/internal/repos/balances"
	"github.com/fastprodman/wagerengine/internal/repos/holds"
)

var (
	ErrInsufficientFunds = balances.ErrInsufficientFunds
	ErrHoldNotFound      = holds.ErrNotFound
	ErrInvalidAmount     = errs.Validation("amount must be positive")
	ErrInvalidSplit      = errs.Validation("split does not fit the hold amount")
)

type Ledger struct {
	balances balances.Balances
	holds    holds.Holds
	house    string
}

// New builds a Ledger. Fees taken on release are credited to house.
func New(b balances.Balances, h holds.Holds, house string) *Ledger {
	return &Ledger{balances: b, holds: h, house: house}
}

func (l *Ledger) House() string { return l.house }

// Destination says where Release sends escrowed funds.
type Destination struct {
	Kind holds.Destination
	// Beneficiary receives the non-owner share for OTHER and SPLIT.
	Beneficiary string
	// Fee is withheld from the beneficiary share and credited to the house.
	Fee int64
	// OwnerShare is returned to the owner for SPLIT.
	OwnerShare int64
}

func ToOwner() Destination {
	return Destination{Kind: holds.DestinationOwner}
}

func ToUser(beneficiary string, fee int64) Destination {
	return Destination{Kind: holds.DestinationOther, Beneficiary: beneficiary, Fee: fee}
}

func Split(ownerShare int64, beneficiary string, fee int64) Destination {
	return Destination{Kind: holds.DestinationSplit, Beneficiary: beneficiary, Fee: fee, OwnerShare: ownerShare}
}

// Release is the outcome of releasing a hold.
type Release struct {
	Hold holds.Hold
	// Replayed is set when the hold had already been released; Hold then
	// carries the original outcome and no balance moved.
	Replayed bool
	Balances []balances.Balance
}

// Balance returns the user's balance; users never seen hold nothing.
func (l *Ledger) Balance(ctx context.Context, userID string) (balances.Balance, error) {
	b, err := l.balances.Get(ctx, userID)
	if errors.Is(err, balances.ErrNotFound) {
		return balances.Balance{UserID: userID}, nil
	}
	if err != nil {
		return balances.Balance{}, fmt.Errorf("get balance: %w", err)
	}

	return b, nil
}

func (l *Ledger) Entries(ctx context.Context, userID string, limit int) ([]balances.Entry, error) {
	return l.balances.ListEntries(ctx, userID, limit)
}

// Hold moves amount from available to escrowed. It fails fast with
// ErrInsufficientFunds and never waits for funds.
func (l *Ledger) Hold(ctx context.Context, tx *sql.Tx, userID string, amount int64, reason string) (holds.Hold, balances.Balance, error) {
	if amount <= 0 {
		return holds.Hold{}, balances.Balance{}, ErrInvalidAmount
	}

	b, err := l.balances.Apply(ctx, tx, userID, -amount, amount)
	if err != nil {
		return holds.Hold{}, balances.Balance{}, fmt.Errorf("escrow %d for %s: %w", amount, userID, err)
	}

	h := holds.Hold{
		ID:     uuid.NewString(),
		UserID: userID,
		Amount: amount,
		Status: holds.StatusActive,
		Reason: reason,
	}

	err = l.holds.Insert(ctx, tx, h)
	if err != nil {
		return holds.Hold{}, balances.Balance{}, err
	}

	err = l.balances.AppendEntry(ctx, tx, balances.Entry{
		UserID: userID, Kind: balances.EntryHold, DAvailable: -amount, DEscrowed: amount, HoldID: h.ID, Reason: reason,
	})
	if err != nil {
		return holds.Hold{}, balances.Balance{}, err
	}

	return h, b, nil
}

// Release settles a hold. It is idempotent per hold: a second call returns
// the stored outcome without moving funds.
func (l *Ledger) Release(ctx context.Context, tx *sql.Tx, holdID string, dest Destination) (Release, error) {
	h, err := l.holds.Lock(ctx, tx, holdID)
	if err != nil {
		return Release{}, err
	}

	if h.Status == holds.StatusReleased {
		return Release{Hold: h, Replayed: true}, nil
	}

	credited, ownerShare, err := shares(h.Amount, dest)
	if err != nil {
		return Release{}, err
	}

	// lock every row up front in a stable order so concurrent settlements
	// touching the same users cannot deadlock on each other
	err = l.LockUsers(ctx, tx, h.UserID, dest.Beneficiary, l.feeAccount(dest))
	if err != nil {
		return Release{}, err
	}

	var out []balances.Balance

	owner, err := l.balances.Apply(ctx, tx, h.UserID, ownerShare, -h.Amount)
	if err != nil {
		return Release{}, fmt.Errorf("release escrow of %s: %w", h.UserID, err)
	}
	out = append(out, owner)

	kind := balances.EntryRelease
	if dest.Kind != holds.DestinationOwner {
		kind = balances.EntryForfeit
	}
	err = l.balances.AppendEntry(ctx, tx, balances.Entry{
		UserID: h.UserID, Kind: kind, DAvailable: ownerShare, DEscrowed: -h.Amount, HoldID: h.ID, Reason: h.Reason,
	})
	if err != nil {
		return Release{}, err
	}

	if credited > 0 {
		b, err := l.credit(ctx, tx, dest.Beneficiary, credited, h.ID, "payout: "+h.Reason)
		if err != nil {
			return Release{}, err
		}
		out = append(out, b)
	}

	if dest.Fee > 0 {
		b, err := l.credit(ctx, tx, l.house, dest.Fee, h.ID, "commission: "+h.Reason)
		if err != nil {
			return Release{}, err
		}
		out = append(out, b)
	}

	h.Destination = dest.Kind
	h.BeneficiaryID = dest.Beneficiary
	h.Credited = credited
	h.Fee = dest.Fee

	h, err = l.holds.MarkReleased(ctx, tx, h)
	if err != nil {
		return Release{}, err
	}

	return Release{Hold: h, Balances: out}, nil
}

// Credit adds amount to available, creating the balance row if needed.
func (l *Ledger) Credit(ctx context.Context, tx *sql.Tx, userID string, amount int64, reason string) (balances.Balance, error) {
	if amount <= 0 {
		return balances.Balance{}, ErrInvalidAmount
	}

	return l.credit(ctx, tx, userID, amount, "", reason)
}

// Debit removes amount from available, re-checking the balance at the time
// of the call. It is only used for approved withdrawals.
func (l *Ledger) Debit(ctx context.Context, tx *sql.Tx, userID string, amount int64, reason string) (balances.Balance, error) {
	if amount <= 0 {
		return balances.Balance{}, ErrInvalidAmount
	}

	b, err := l.balances.Apply(ctx, tx, userID, -amount, 0)
	if err != nil {
		return balances.Balance{}, fmt.Errorf("debit %d from %s: %w", amount, userID, err)
	}

	err = l.balances.AppendEntry(ctx, tx, balances.Entry{
		UserID: userID, Kind: balances.EntryDebit, DAvailable: -amount, Reason: reason,
	})
	if err != nil {
		return balances.Balance{}, err
	}

	return b, nil
}

func (l *Ledger) credit(ctx context.Context, tx *sql.Tx, userID string, amount int64, holdID, reason string) (balances.Balance, error) {
	err := l.balances.Ensure(ctx, tx, userID)
	if err != nil {
		return balances.Balance{}, err
	}

	b, err := l.balances.Apply(ctx, tx, userID, amount, 0)
	if err != nil {
		return balances.Balance{}, fmt.Errorf("credit %d to %s: %w", amount, userID, err)
	}

	err = l.balances.AppendEntry(ctx, tx, balances.Entry{
		UserID: userID, Kind: balances.EntryCredit, DAvailable: amount, HoldID: holdID, Reason: reason,
	})
	if err != nil {
		return balances.Balance{}, err
	}

	return b, nil
}

func (l *Ledger) feeAccount(dest Destination) string {
	if dest.Fee > 0 {
		return l.house
	}
	return ""
}

// LockUsers creates and locks the balance rows of ids in sorted order.
// Callers that go on to touch several users in one transaction lock them
// all here first, so every path acquires balance locks in the same order.
func (l *Ledger) LockUsers(ctx context.Context, tx *sql.Tx, ids ...string) error {
	for _, id := range lockOrder(ids) {
		err := l.balances.Ensure(ctx, tx, id)
		if err != nil {
			return err
		}

		_, err = l.balances.Lock(ctx, tx, id)
		if err != nil {
			return err
		}
	}

	return nil
}

// lockOrder returns ids sorted and deduplicated, without empty entries.
func lockOrder(ids []string) []string {
	ids = slices.DeleteFunc(slices.Clone(ids), func(s string) bool { return s == "" })
	slices.Sort(ids)
	return slices.Compact(ids)
}

// shares splits amount into the beneficiary credit and the owner refund.
func shares(amount int64, dest Destination) (credited, ownerShare int64, err error) {
	if dest.Fee < 0 {
		return 0, 0, ErrInvalidSplit
	}

	switch dest.Kind {
	case holds.DestinationOwner:
		if dest.Fee != 0 {
			return 0, 0, ErrInvalidSplit
		}
		return 0, amount, nil
	case holds.DestinationOther:
		if dest.Beneficiary == "" || dest.Fee > amount {
			return 0, 0, ErrInvalidSplit
		}
		return amount - dest.Fee, 0, nil
	case holds.DestinationSplit:
		if dest.Beneficiary == "" || dest.OwnerShare < 0 || dest.OwnerShare+dest.Fee > amount {
			return 0, 0, ErrInvalidSplit
		}
		return amount - dest.OwnerShare - dest.Fee, dest.OwnerShare, nil
	default:
		return 0, 0, errs.Validation(fmt.Sprintf("unknown release destination %q", dest.Kind))
	}
}
