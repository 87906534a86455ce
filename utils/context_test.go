package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsContextCanceled(t *testing.T) {
	assert.False(t, IsContextCanceled(nil))
	assert.False(t, IsContextCanceled(errors.New("boom")))
	assert.True(t, IsContextCanceled(context.Canceled))
	assert.True(t, IsContextCanceled(fmt.Errorf("query: %w", context.DeadlineExceeded)))
}

func TestDetachedContext(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	cancel()

	detached := DetachedContext(parent)
	assert.Error(t, parent.Err())
	assert.NoError(t, detached.Err())
}
