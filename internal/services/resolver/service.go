// Package resolver reconciles the results declared by both players of a
// match and settles the ledger exactly once per match.
//
//	AWAITING_DECLARATIONS -> SETTLING -> SETTLED
//	AWAITING_DECLARATIONS -> DISPUTED -> (adjudication) -> SETTLING -> SETTLED
package resolver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fastprodman/wagerengine/internal/errs"
	"github.com/fastprodman/wagerengine/internal/infra/metrics"
	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/infra/tracing"
	"github.com/fastprodman/wagerengine/internal/repos/matches"
	pgmatches "github.com/fastprodman/wagerengine/internal/repos/matches/postgres"
	"github.com/fastprodman/wagerengine/internal/repos/transactions"
	pgtransactions "github.com/fastprodman/wagerengine/internal/repos/transactions/postgres"
	"github.com/fastprodman/wagerengine/internal/repos/wagers"
	pgwagers "github.com/fastprodman/wagerengine/internal/repos/wagers/postgres"
	"github.com/fastprodman/wagerengine/internal/services/authority"
	"github.com/fastprodman/wagerengine/internal/services/ledger"
	"github.com/fastprodman/wagerengine/internal/services/notify"
)

var (
	ErrNotFound           = wagers.ErrNotFound
	ErrNotMatched         = fmt.Errorf("wager has no match: %w", errs.ErrIllegalTransition)
	ErrNotParticipant     = fmt.Errorf("not a participant of this match: %w", errs.ErrForbidden)
	ErrDeclarationsClosed = fmt.Errorf("match no longer accepts declarations: %w", errs.ErrIllegalTransition)
	ErrNotDisputed        = fmt.Errorf("match is not disputed: %w", errs.ErrIllegalTransition)
	ErrNotSettling        = fmt.Errorf("match is not ready for settlement: %w", errs.ErrIllegalTransition)
)

const (
	ReasonConflict    = "conflict"
	ReasonUnconfirmed = "unconfirmed"

	// SystemApprover marks transactions minted by settlement.
	SystemApprover = "system"
)

var tracer = tracing.Tracer("services/resolver")

type Deps struct {
	Ledger *ledger.Ledger
	// Authority decides who may adjudicate disputed matches.
	Authority authority.Authority
	Publisher notify.Publisher
	Metrics   *metrics.Metrics
	Retry     pgutils.RetryPolicy
	Now       func() time.Time
}

type Service struct {
	db      *sql.DB
	wagers  wagers.Wagers
	matches matches.Matches
	txns    transactions.Transactions
	Deps
}

func New(db *sql.DB, deps Deps) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Service{
		db:      db,
		wagers:  pgwagers.New(db),
		matches: pgmatches.New(db),
		txns:    pgtransactions.New(db),
		Deps:    deps,
	}
}

// View is a wager together with the resolver state of its match.
type View struct {
	Wager        wagers.Wager          `json:"wager"`
	Match        *matches.Match        `json:"match,omitempty"`
	Declarations []matches.Declaration `json:"declarations,omitempty"`
}

func (s *Service) View(ctx context.Context, wagerID string) (View, error) {
	w, err := s.wager(ctx, wagerID)
	if err != nil {
		return View{}, err
	}

	v := View{Wager: w}
	if w.MatchID == "" {
		return v, nil
	}

	m, err := s.matches.Get(ctx, w.MatchID)
	if err != nil {
		return View{}, fmt.Errorf("get match: %w", err)
	}
	v.Match = &m

	v.Declarations, err = s.matches.ListDeclarations(ctx, m.ID)
	if err != nil {
		return View{}, err
	}

	return v, nil
}

func (s *Service) wager(ctx context.Context, wagerID string) (wagers.Wager, error) {
	if uuid.Validate(wagerID) != nil {
		return wagers.Wager{}, ErrNotFound
	}

	w, err := s.wagers.Get(ctx, wagerID)
	if err != nil {
		return wagers.Wager{}, fmt.Errorf("get wager: %w", err)
	}

	return w, nil
}

func (s *Service) matchOf(ctx context.Context, wagerID string) (wagers.Wager, error) {
	w, err := s.wager(ctx, wagerID)
	if err != nil {
		return wagers.Wager{}, err
	}
	if w.MatchID == "" {
		return wagers.Wager{}, fmt.Errorf("wager %s is %s: %w", w.ID, w.Status, ErrNotMatched)
	}

	return w, nil
}
