// Package wagers is the wager pool: it escrows stakes, pairs compatible
// PENDING wagers oldest first and refunds the ones nobody took.
package wagers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fastprodman/wagerengine/internal/accounts"
	"github.com/fastprodman/wagerengine/internal/errs"
	"github.com/fastprodman/wagerengine/internal/infra/metrics"
	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/infra/tracing"
	"github.com/fastprodman/wagerengine/internal/repos/matches"
	pgmatches "github.com/fastprodman/wagerengine/internal/repos/matches/postgres"
	"github.com/fastprodman/wagerengine/internal/repos/wagers"
	pgwagers "github.com/fastprodman/wagerengine/internal/repos/wagers/postgres"
	"github.com/fastprodman/wagerengine/internal/services/ledger"
	"github.com/fastprodman/wagerengine/internal/services/notify"
)

type (
	Wager  = wagers.Wager
	Status = wagers.Status
)

var (
	ErrNotFound       = wagers.ErrNotFound
	ErrNotCancellable = fmt.Errorf("wager is not cancellable: %w", errs.ErrIllegalTransition)
	ErrNotMatched     = fmt.Errorf("wager is not matched: %w", errs.ErrIllegalTransition)
	ErrNotOwner       = fmt.Errorf("wager belongs to another player: %w", errs.ErrForbidden)
	ErrNotParticipant = fmt.Errorf("not a participant of this match: %w", errs.ErrForbidden)
)

const (
	listLimit = 200
	// maxPairAttempts bounds re-scans after a lost pairing race.
	maxPairAttempts = 3
)

var tracer = tracing.Tracer("services/wagers")

type Deps struct {
	Ledger    *ledger.Ledger
	Catalog   Catalog
	Accounts  accounts.Client
	Publisher notify.Publisher
	Metrics   *metrics.Metrics
	Retry     pgutils.RetryPolicy
	// ResultWindow is how long players have to declare once matched.
	ResultWindow time.Duration
	Now          func() time.Time
}

type Service struct {
	db      *sql.DB
	wagers  wagers.Wagers
	matches matches.Matches
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
		Deps:    deps,
	}
}

type CreateRequest struct {
	UserID string
	Amount int64
	Mode   string
	// RequestID makes the request idempotent when set.
	RequestID string
}

func (s *Service) Get(ctx context.Context, id string) (Wager, error) {
	if uuid.Validate(id) != nil {
		return Wager{}, ErrNotFound
	}

	w, err := s.wagers.Get(ctx, id)
	if err != nil {
		return Wager{}, fmt.Errorf("get wager: %w", err)
	}

	return w, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Wager, error) {
	out, err := s.wagers.ListByPlayer(ctx, userID, listLimit)
	if err != nil {
		return nil, fmt.Errorf("list wagers: %w", err)
	}

	return out, nil
}

func (s *Service) Modes() []Mode { return s.Catalog.List() }
