package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidation(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("create wager: %w", Validation("unknown mode \"x\""))

	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, errors.Is(err, ErrIllegalTransition))
	assert.Equal(t, `create wager: validation failed: unknown mode "x"`, err.Error())
}
