package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndGet(t *testing.T) {
	m := NewMemoryStore(10, time.Minute)

	m.Append("s1", Message{Role: "user", Content: "hi"})
	m.Append("s1", Message{Role: "assistant", Content: "hello"})

	msgs := m.Get("s1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.False(t, msgs[0].At.IsZero())
	assert.Nil(t, m.Get("unknown"))
}

func TestTrimKeepsMostRecent(t *testing.T) {
	m := NewMemoryStore(3, time.Minute)

	for _, c := range []string{"a", "b", "c", "d", "e"} {
		m.Append("s1", Message{Role: "user", Content: c})
	}

	msgs := m.Get("s1")
	require.Len(t, msgs, 3)
	assert.Equal(t, "c", msgs[0].Content)
	assert.Equal(t, "e", msgs[2].Content)
}

func TestExpiredSessionEvicted(t *testing.T) {
	m := NewMemoryStore(10, 20*time.Millisecond)

	m.Append("s1", Message{Role: "user", Content: "hi"})
	time.Sleep(40 * time.Millisecond)

	assert.Nil(t, m.Get("s1"))
}

func TestGetReturnsCopy(t *testing.T) {
	m := NewMemoryStore(10, time.Minute)
	m.Append("s1", Message{Role: "user", Content: "hi"})

	msgs := m.Get("s1")
	msgs[0].Content = "mutated"

	assert.Equal(t, "hi", m.Get("s1")[0].Content)
}
