package wagers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/repos/matches"
	"github.com/fastprodman/wagerengine/internal/repos/wagers"
	"github.com/fastprodman/wagerengine/internal/services/notify"
)

var errLostRace = errors.New("lost pairing race")

// Pair matches the wager with the longest-waiting compatible PENDING wager
// of another player. Without a candidate the wager stays PENDING; that is
// not an error.
func (s *Service) Pair(ctx context.Context, wagerID string) (Wager, error) {
	ctx, span := tracer.Start(ctx, "wagers.Pair")
	defer span.End()

	for attempt := 1; ; attempt++ {
		w, opponent, err := s.tryPair(ctx, wagerID)
		if errors.Is(err, errLostRace) {
			s.Metrics.PairingRetries.Inc()
			if attempt < maxPairAttempts {
				continue
			}
			return s.wagers.Get(ctx, wagerID)
		}
		if err != nil {
			return Wager{}, fmt.Errorf("pair wager: %w", err)
		}

		if opponent != nil {
			s.Metrics.Pairings.WithLabelValues(w.Mode).Inc()
			s.Publisher.Publish(ctx, notify.WagerUpdated(w), notify.WagerUpdated(*opponent))
		}

		return w, nil
	}
}

func (s *Service) tryPair(ctx context.Context, wagerID string) (Wager, *Wager, error) {
	own, err := s.wagers.Get(ctx, wagerID)
	if err != nil {
		return Wager{}, nil, err
	}
	if own.Status != wagers.StatusPending {
		return own, nil, nil
	}

	var opponent *Wager

	err = pgutils.WithTxRetry(ctx, s.db, s.Retry, func(tx *sql.Tx) error {
		opponent = nil

		err := s.wagers.LockPool(ctx, tx, own.Amount, own.Mode)
		if err != nil {
			return err
		}

		own, err = s.wagers.Lock(ctx, tx, wagerID)
		if err != nil {
			return err
		}
		if own.Status != wagers.StatusPending {
			return nil
		}

		cand, err := s.wagers.FindCandidate(ctx, tx, own)
		if errors.Is(err, wagers.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		matchID := uuid.NewString()

		matched, err := s.wagers.MarkMatched(ctx, tx, own.ID, cand.Player1ID, matchID)
		if errors.Is(err, wagers.ErrStatusChanged) {
			return errLostRace
		}
		if err != nil {
			return err
		}

		counterpart, err := s.wagers.MarkMatched(ctx, tx, cand.ID, own.Player1ID, matchID)
		if errors.Is(err, wagers.ErrStatusChanged) {
			return errLostRace
		}
		if err != nil {
			return err
		}

		_, err = s.matches.Insert(ctx, tx, matches.Match{
			ID:             matchID,
			Wager1ID:       cand.ID,
			Wager2ID:       own.ID,
			Player1ID:      cand.Player1ID,
			Player2ID:      own.Player1ID,
			Amount:         own.Amount,
			Commission:     s.Catalog[own.Mode].Commission,
			Mode:           own.Mode,
			State:          matches.StateAwaiting,
			ResultDeadline: s.Now().Add(s.ResultWindow),
		})
		if err != nil {
			return err
		}

		own, opponent = matched, &counterpart
		return nil
	})
	if err != nil {
		return Wager{}, nil, err
	}

	return own, opponent, nil
}

// RetryPending re-runs pairing for the oldest PENDING wagers, picking up any
// left queued by a failed or skipped pairing attempt. It returns how many
// matches it formed.
func (s *Service) RetryPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.wagers.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	formed := make(map[string]struct{})
	for _, p := range pending {
		w, err := s.Pair(ctx, p.ID)
		if err != nil {
			return len(formed), err
		}
		if w.Status == wagers.StatusMatched {
			formed[w.MatchID] = struct{}{}
		}
	}

	return len(formed), nil
}
