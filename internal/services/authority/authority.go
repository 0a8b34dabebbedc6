// Package authority decides who may approve transactions and adjudicate
// disputed matches.
package authority

import (
	"context"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/errs"
)

type Action string

const (
	ActionFinalizeTransaction Action = "finalize_transaction"
	ActionResolveDispute      Action = "resolve_dispute"
)

// Authority returns an error wrapping errs.ErrForbidden when actorID may not
// perform action.
type Authority interface {
	Authorize(ctx context.Context, actorID string, action Action) error
}

// AdminSet grants every action to a fixed set of ids. An empty set grants
// nothing.
type AdminSet map[string]struct{}

func NewAdminSet(ids ...string) AdminSet {
	s := make(AdminSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s AdminSet) Authorize(_ context.Context, actorID string, action Action) error {
	if _, ok := s[actorID]; ok && actorID != "" {
		return nil
	}
	return fmt.Errorf("%q may not %s: %w", actorID, action, errs.ErrForbidden)
}
