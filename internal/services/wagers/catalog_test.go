package wagers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/wagerengine/internal/errs"
)

func TestCatalogResolve(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()

	m, err := c.Resolve("classic", 6000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), m.Commission)

	_, err = c.Resolve("classic", 5000)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = c.Resolve("blitz", 6000)
	assert.ErrorIs(t, err, errs.ErrValidation)

	names := make([]string, 0)
	for _, m := range c.List() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"classic", "triple-draft"}, names)
}
