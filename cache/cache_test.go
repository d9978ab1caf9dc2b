package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	m := NewMemory()

	_, ok := m.GetBytes("missing")
	assert.False(t, ok)

	m.SetBytes("k", []byte("v"), time.Minute)
	got, ok := m.GetBytes("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	m.SetBytes("short", []byte("v"), 20*time.Millisecond)

	_, ok := m.GetBytes("short")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	_, ok = m.GetBytes("short")
	assert.False(t, ok)
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	m.SetBytes("k", []byte("v"), time.Minute)
	m.Delete("k")
	_, ok := m.GetBytes("k")
	assert.False(t, ok)
}

func TestMemoryClearPrefix(t *testing.T) {
	m := NewMemory()
	m.SetBytes("posts:index:page=1", []byte("a"), time.Minute)
	m.SetBytes("posts:index:page=2", []byte("b"), time.Minute)
	m.SetBytes("auth:revoked:tok", []byte("1"), time.Minute)

	m.Clear("posts:index:")

	_, ok := m.GetBytes("posts:index:page=1")
	assert.False(t, ok)
	_, ok = m.GetBytes("posts:index:page=2")
	assert.False(t, ok)
	_, ok = m.GetBytes("auth:revoked:tok")
	assert.True(t, ok, "unrelated keys survive a prefixed clear")
}
