package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Seen(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()
	ctx := context.Background()

	seen, err := m.Seen(ctx, "ssr-a", time.Minute)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = m.Seen(ctx, "ssr-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = m.Seen(ctx, "ssr-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemory_SeenExpires(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	seen, _ := m.Seen(ctx, "k", 10*time.Millisecond)
	require.False(t, seen)

	time.Sleep(30 * time.Millisecond)

	seen, _ = m.Seen(ctx, "k", 10*time.Millisecond)
	assert.False(t, seen, "expired key counts as new")
}

func TestMemory_SeenConcurrent(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	first := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if seen, _ := m.Seen(ctx, "same", time.Minute); !seen {
				mu.Lock()
				first++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, first)
}

func TestMemory_Fragments(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	parts, err := m.AddFragment(ctx, "aisFrag-x", 2, "b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{2: "b"}, parts)

	parts, err = m.AddFragment(ctx, "aisFrag-x", 1, "a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "a", 2: "b"}, parts)

	// the returned map is a copy
	parts[3] = "c"
	again, err := m.AddFragment(ctx, "aisFrag-x", 1, "a", time.Minute)
	require.NoError(t, err)
	assert.Len(t, again, 2)

	require.NoError(t, m.Delete(ctx, "aisFrag-x"))
	parts, err = m.AddFragment(ctx, "aisFrag-x", 1, "a", time.Minute)
	require.NoError(t, err)
	assert.Len(t, parts, 1)
	assert.Equal(t, 1, m.Len())
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "ssr-d41d8cd98f00b204e9800998ecf8427e", DedupKey("ssr", ""))
	assert.NotEqual(t, DedupKey("ssr", "8d4840d6"), DedupKey("ais", "8d4840d6"))
}
