package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

func TestMemoryStoreGetSetNX(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(logger.Nop())

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	ok, err := s.SetNX(ctx, "k", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.SetNX(ctx, "k", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStorePubSub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewMemory(logger.Nop())

	got := make(chan string, 1)
	require.NoError(t, s.Subscribe(ctx, "notifications", func(b []byte) { got <- string(b) }))
	require.NoError(t, s.Publish(ctx, "notifications", []byte("hello")))
	require.NoError(t, s.Publish(ctx, "other", []byte("ignored")))

	select {
	case msg := <-got:
		assert.Equal(t, "hello", msg)
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
}
