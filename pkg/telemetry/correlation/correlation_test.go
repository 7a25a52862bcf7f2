package correlation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "req-1")
	ctx, cid := EnsureCorrelationID(ctx)
	assert.Equal(t, "req-1", cid)
	assert.Equal(t, "req-1", ExtractCorrelationID(ctx))

	_, generated := EnsureCorrelationID(context.Background())
	assert.Len(t, generated, 26)
}

func TestDetachDropsCancellation(t *testing.T) {
	parent, cancel := context.WithTimeout(ContextWithCorrelationID(context.Background(), "req-2"), time.Millisecond)
	cancel()

	detached := Detach(parent)
	assert.NoError(t, detached.Err())
	assert.Equal(t, "req-2", ExtractCorrelationID(detached))
}
