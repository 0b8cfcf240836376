package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRistrettoRoundTripAndFlush(t *testing.T) {
	r, err := NewRistretto(RistrettoConfig{MaxBytes: 1 << 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	ctx := context.Background()
	value := []byte("v")
	require.NoError(t, r.Set(ctx, "k", value, time.Minute))
	value[0] = 'x'

	got, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(got))

	require.NoError(t, r.Flush(ctx))
	_, ok, err = r.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRistrettoRejectsEntryLargerThanBudget(t *testing.T) {
	r, err := NewRistretto(RistrettoConfig{MaxBytes: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	err = r.Set(context.Background(), "k", make([]byte, 64), time.Minute)
	if err == nil {
		_, ok, _ := r.Get(context.Background(), "k")
		assert.False(t, ok)
	}
}
