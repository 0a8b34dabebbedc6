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
)

type DeclareRequest struct {
	WagerID     string
	PlayerID    string
	Outcome     matches.Outcome
	EvidenceRef string
}

// DeclareResult stores a player's self-reported outcome. Resubmitting before
// the opponent declares replaces the earlier declaration. The second
// declaration decides the match: one WIN and one LOSS settle it, anything
// else disputes it.
func (s *Service) DeclareResult(ctx context.Context, req DeclareRequest) (View, error) {
	ctx, span := tracer.Start(ctx, "resolver.DeclareResult")
	defer span.End()
	span.SetAttributes(attribute.String("wager_id", req.WagerID), attribute.String("outcome", string(req.Outcome)))

	if req.Outcome != matches.OutcomeWin && req.Outcome != matches.OutcomeLoss {
		return View{}, errs.Validation(fmt.Sprintf("unknown outcome %q", req.Outcome))
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

		if !m.HasPlayer(req.PlayerID) {
			return ErrNotParticipant
		}
		if m.State != matches.StateAwaiting {
			return fmt.Errorf("match %s is %s: %w", m.ID, m.State, ErrDeclarationsClosed)
		}

		err = s.matches.UpsertDeclaration(ctx, tx, matches.Declaration{
			MatchID:     m.ID,
			PlayerID:    req.PlayerID,
			Outcome:     req.Outcome,
			EvidenceRef: req.EvidenceRef,
		})
		if err != nil {
			return err
		}

		decls, err := s.matches.Declarations(ctx, tx, m.ID)
		if err != nil {
			return err
		}
		if len(decls) < 2 {
			return nil
		}

		next := reconcile(m, decls)
		m, err = s.matches.Update(ctx, tx, next, matches.StateAwaiting)
		return err
	})
	if err != nil {
		return View{}, fmt.Errorf("declare result: %w", err)
	}

	switch m.State {
	case matches.StateDisputed:
		s.Metrics.Disputes.WithLabelValues(m.DisputeReason).Inc()
		slog.Info("match disputed", "match_id", m.ID, "reason", m.DisputeReason)
	case matches.StateSettling:
		_, err := s.Settle(ctx, m.ID)
		if err != nil {
			// the match stays SETTLING and the sweeper settles it later
			slog.Warn("settle agreed match", "match_id", m.ID, "error", err)
		}
	}

	return s.View(ctx, req.WagerID)
}

// reconcile decides a match from both declarations.
func reconcile(m matches.Match, decls []matches.Declaration) matches.Match {
	var winners []string
	for _, d := range decls {
		if d.Outcome == matches.OutcomeWin {
			winners = append(winners, d.PlayerID)
		}
	}

	if len(winners) == 1 {
		m.State = matches.StateSettling
		m.WinnerID = winners[0]
		return m
	}

	m.State = matches.StateDisputed
	m.DisputeReason = ReasonConflict
	return m
}
