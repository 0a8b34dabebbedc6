package resolver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fastprodman/wagerengine/internal/errs"
	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/repos/matches"
	"github.com/fastprodman/wagerengine/internal/services/authority"
)

type ResolveRequest struct {
	WagerID       string
	AdjudicatorID string
	// WinnerID is ignored when Draw is set.
	WinnerID string
	// Draw refunds both stakes without commission.
	Draw bool
}

// ResolveDispute settles a DISPUTED match by external adjudication.
func (s *Service) ResolveDispute(ctx context.Context, req ResolveRequest) (View, error) {
	ctx, span := tracer.Start(ctx, "resolver.ResolveDispute")
	defer span.End()
	span.SetAttributes(attribute.String("wager_id", req.WagerID), attribute.Bool("draw", req.Draw))

	if req.AdjudicatorID == "" {
		return View{}, errs.Validation("adjudicatorId is required")
	}
	if !req.Draw && req.WinnerID == "" {
		return View{}, errs.Validation("winnerId or draw is required")
	}
	if req.Draw {
		req.WinnerID = ""
	}

	err := s.Authority.Authorize(ctx, req.AdjudicatorID, authority.ActionResolveDispute)
	if err != nil {
		return View{}, err
	}

	w, err := s.matchOf(ctx, req.WagerID)
	if err != nil {
		return View{}, err
	}

	var m matches.Match

	err = pgutils.WithTxRetry(ctx, s.db, s.Retry, func(tx *sql.Tx) error {
		var err error
		m, err = s.matches.Lock(ctx, tx, w.MatchID)
		if err != nil {
			return err
		}

		if m.State != matches.StateDisputed {
			return fmt.Errorf("match %s is %s: %w", m.ID, m.State, ErrNotDisputed)
		}
		if !req.Draw && !m.HasPlayer(req.WinnerID) {
			return errs.Validation("winner must be a participant of the match")
		}

		m.State = matches.StateSettling
		m.WinnerID = req.WinnerID
		m.Draw = req.Draw
		m.AdjudicatorID = req.AdjudicatorID

		m, err = s.matches.Update(ctx, tx, m, matches.StateDisputed)
		return err
	})
	if err != nil {
		return View{}, fmt.Errorf("resolve dispute: %w", err)
	}

	slog.Info("dispute adjudicated", "match_id", m.ID, "winner_id", m.WinnerID, "draw", m.Draw,
		"adjudicator_id", m.AdjudicatorID)

	_, err = s.Settle(ctx, m.ID)
	if err != nil {
		return View{}, err
	}

	return s.View(ctx, req.WagerID)
}
