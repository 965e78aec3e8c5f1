package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduperMarksRepeats(t *testing.T) {
	d := NewMemoryDeduper()

	seen, err := d.MarkSeen(context.Background(), "evt-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = d.MarkSeen(context.Background(), "evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = d.MarkSeen(context.Background(), "evt-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryDeduperExpiresEntries(t *testing.T) {
	d := NewMemoryDeduper()

	_, err := d.MarkSeen(context.Background(), "evt-1", -time.Second)
	require.NoError(t, err)

	seen, err := d.MarkSeen(context.Background(), "evt-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, seen, "expired entry should be forgotten")
}
