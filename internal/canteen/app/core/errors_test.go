package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "validation", Kind(fmt.Errorf("%w: items are required", ErrValidation)))
	assert.Equal(t, "insufficient_stock", Kind(fmt.Errorf("%w: dish 3", ErrInsufficientStock)))
	assert.Equal(t, "conflict", Kind(ErrRequestInFlight))
	assert.Equal(t, "conflict", Kind(fmt.Errorf("lock stock: %w", context.DeadlineExceeded)))
	assert.Equal(t, "internal", Kind(errors.New("boom")))
}
