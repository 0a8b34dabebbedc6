package wagers

import (
	"fmt"
	"sort"

	"github.com/fastprodman/wagerengine/internal/errs"
)

// Mode is a catalog entry: every wager of a mode stakes exactly Stake and the
// platform keeps Commission out of the pot on settlement.
type Mode struct {
	Name       string `json:"name"`
	Stake      int64  `json:"stake"`
	Commission int64  `json:"commission"`
}

type Catalog map[string]Mode

func DefaultCatalog() Catalog {
	return NewCatalog(
		Mode{Name: "classic", Stake: 6000, Commission: 1000},
		Mode{Name: "triple-draft", Stake: 6000, Commission: 1000},
	)
}

func NewCatalog(modes ...Mode) Catalog {
	c := make(Catalog, len(modes))
	for _, m := range modes {
		c[m.Name] = m
	}
	return c
}

// Resolve validates a requested (mode, amount) pair.
func (c Catalog) Resolve(mode string, amount int64) (Mode, error) {
	m, ok := c[mode]
	if !ok {
		return Mode{}, errs.Validation(fmt.Sprintf("unknown mode %q", mode))
	}
	if amount != m.Stake {
		return Mode{}, errs.Validation(fmt.Sprintf("mode %s stakes exactly %d", mode, m.Stake))
	}
	return m, nil
}

func (c Catalog) List() []Mode {
	out := make([]Mode, 0, len(c))
	for _, m := range c {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
