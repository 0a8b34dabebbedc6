package resolver

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/repos/balances"
	"github.com/fastprodman/wagerengine/internal/repos/matches"
	"github.com/fastprodman/wagerengine/internal/repos/transactions"
	"github.com/fastprodman/wagerengine/internal/repos/wagers"
	"github.com/fastprodman/wagerengine/internal/services/ledger"
	"github.com/fastprodman/wagerengine/internal/services/notify"
)

type Settlement struct {
	MatchID    string `json:"matchId"`
	WinnerID   string `json:"winnerId,omitempty"`
	Draw       bool   `json:"draw"`
	Payout     int64  `json:"payout"`
	Commission int64  `json:"commission"`
	// PayoutTx is the audit record minted for the winner; nil on a draw.
	PayoutTx *transactions.Transaction `json:"payoutTx,omitempty"`
	// Replayed is set when the match had already been settled.
	Replayed bool `json:"replayed"`
}

// Settle moves the escrowed stakes of a SETTLING match to its winner, or back
// to both players on a draw. The terminal-state check and the fund releases
// share one transaction, so concurrent or repeated calls pay out once; a
// call on a SETTLED match returns the stored outcome.
func (s *Service) Settle(ctx context.Context, matchID string) (Settlement, error) {
	ctx, span := tracer.Start(ctx, "resolver.Settle")
	defer span.End()
	span.SetAttributes(attribute.String("match_id", matchID))

	var (
		out     Settlement
		changed []balances.Balance
		closed  []wagers.Wager
	)

	err := pgutils.WithTxRetry(ctx, s.db, s.Retry, func(tx *sql.Tx) error {
		out, changed, closed = Settlement{}, nil, nil

		m, err := s.matches.Lock(ctx, tx, matchID)
		if err != nil {
			return err
		}

		switch m.State {
		case matches.StateSettled:
			out, err = s.stored(ctx, m)
			return err
		case matches.StateSettling:
		default:
			return fmt.Errorf("match %s is %s: %w", m.ID, m.State, ErrNotSettling)
		}

		w1, err := s.wagers.Lock(ctx, tx, m.Wager1ID)
		if err != nil {
			return err
		}
		w2, err := s.wagers.Lock(ctx, tx, m.Wager2ID)
		if err != nil {
			return err
		}

		users := []string{m.Player1ID, m.Player2ID}
		if !m.Draw && m.Commission > 0 {
			users = append(users, s.Ledger.House())
		}
		err = s.Ledger.LockUsers(ctx, tx, users...)
		if err != nil {
			return err
		}

		out = Settlement{MatchID: m.ID, WinnerID: m.WinnerID, Draw: m.Draw}

		if m.Draw {
			for _, w := range []wagers.Wager{w1, w2} {
				rel, err := s.Ledger.Release(ctx, tx, w.HoldID, ledger.ToOwner())
				if err != nil {
					return err
				}
				changed = append(changed, rel.Balances...)
			}
		} else {
			winnerWager, loserWager := w1, w2
			if m.WagerOf(m.WinnerID) == w2.ID {
				winnerWager, loserWager = w2, w1
			}

			rel, err := s.Ledger.Release(ctx, tx, winnerWager.HoldID, ledger.ToOwner())
			if err != nil {
				return err
			}
			changed = append(changed, rel.Balances...)

			rel, err = s.Ledger.Release(ctx, tx, loserWager.HoldID, ledger.ToUser(m.WinnerID, m.Commission))
			if err != nil {
				return err
			}
			changed = append(changed, rel.Balances...)

			payout, err := s.txns.Insert(ctx, tx, transactions.Transaction{
				ID:         uuid.NewString(),
				UserID:     m.WinnerID,
				Amount:     2*m.Amount - m.Commission,
				Kind:       transactions.KindPayout,
				Status:     transactions.StatusApproved,
				MatchID:    m.ID,
				ApproverID: SystemApprover,
			})
			if err != nil {
				return err
			}

			out.Payout = payout.Amount
			out.Commission = m.Commission
			out.PayoutTx = &payout
			m.PayoutTxID = payout.ID
		}

		_, err = s.wagers.CloseMatch(ctx, tx, m.ID)
		if err != nil {
			return err
		}
		for _, w := range []wagers.Wager{w1, w2} {
			w.Status = wagers.StatusSettled
			closed = append(closed, w)
		}

		m.State = matches.StateSettled
		_, err = s.matches.Update(ctx, tx, m, matches.StateSettling)
		return err
	})
	if err != nil {
		return Settlement{}, fmt.Errorf("settle match: %w", err)
	}

	if out.Replayed {
		return out, nil
	}

	result := "win"
	if out.Draw {
		result = "draw"
	}
	s.Metrics.Settlements.WithLabelValues(result).Inc()

	events := notify.Balances(changed...)
	if out.PayoutTx != nil {
		events = append(events, notify.TransactionFinalized(*out.PayoutTx))
	}
	for _, w := range closed {
		events = append(events, notify.WagerUpdated(w))
	}
	s.Publisher.Publish(ctx, events...)

	return out, nil
}

func (s *Service) stored(ctx context.Context, m matches.Match) (Settlement, error) {
	out := Settlement{MatchID: m.ID, WinnerID: m.WinnerID, Draw: m.Draw, Replayed: true}
	if m.Draw || m.PayoutTxID == "" {
		return out, nil
	}

	payout, err := s.txns.Get(ctx, m.PayoutTxID)
	if err != nil {
		return Settlement{}, fmt.Errorf("load payout: %w", err)
	}

	out.Payout = payout.Amount
	out.Commission = m.Commission
	out.PayoutTx = &payout

	return out, nil
}
