package wagers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/repos/wagers"
	"github.com/fastprodman/wagerengine/internal/services/notify"
)

// StartSession issues the chat/session handle of a match and moves both of
// its wagers to IN_PROGRESS. Funds are not touched. Calling it again returns
// the wager with the handle already issued.
func (s *Service) StartSession(ctx context.Context, wagerID, userID string) (Wager, error) {
	ctx, span := tracer.Start(ctx, "wagers.StartSession")
	defer span.End()

	w, err := s.Get(ctx, wagerID)
	if err != nil {
		return Wager{}, err
	}
	if w.MatchID == "" {
		return Wager{}, fmt.Errorf("wager %s is %s: %w", w.ID, w.Status, ErrNotMatched)
	}
	if w.Player1ID != userID && w.Player2ID != userID {
		return Wager{}, ErrNotParticipant
	}

	started := false

	err = pgutils.WithTxRetry(ctx, s.db, s.Retry, func(tx *sql.Tx) error {
		started = false

		// the match row serializes both players of the match
		_, err := s.matches.Lock(ctx, tx, w.MatchID)
		if err != nil {
			return err
		}

		w, err = s.wagers.Lock(ctx, tx, wagerID)
		if err != nil {
			return err
		}

		switch w.Status {
		case wagers.StatusInProgress:
			return nil
		case wagers.StatusMatched:
		default:
			return fmt.Errorf("wager %s is %s: %w", w.ID, w.Status, ErrNotMatched)
		}

		_, err = s.wagers.StartSession(ctx, tx, w.MatchID, uuid.NewString())
		if err != nil {
			return err
		}
		started = true

		w, err = s.wagers.Lock(ctx, tx, wagerID)
		return err
	})
	if err != nil {
		return Wager{}, fmt.Errorf("start session: %w", err)
	}

	if started {
		s.Publisher.Publish(ctx, notify.WagerUpdated(w))
	}

	return w, nil
}
