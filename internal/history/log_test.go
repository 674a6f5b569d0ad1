package history

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLog() (*Log, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLog(nil)
	l.now = clock.now
	return l, clock
}

func TestAppendTranscript_MergesRecentSameRole(t *testing.T) {
	l, clock := newTestLog()

	l.AppendTranscript(RoleModel, "Olá, ")
	clock.t = clock.t.Add(2 * time.Second)
	l.AppendTranscript(RoleModel, "tudo bem?")

	msgs := l.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Olá, tudo bem?", msgs[0].Text)
	assert.Equal(t, clock.t, msgs[0].Timestamp)
}

func TestAppendTranscript_SplitsOnRoleChange(t *testing.T) {
	l, _ := newTestLog()

	l.AppendTranscript(RoleUser, "oi")
	l.AppendTranscript(RoleModel, "olá")
	l.AppendTranscript(RoleUser, "tchau")

	msgs := l.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []Role{RoleUser, RoleModel, RoleUser}, []Role{msgs[0].Role, msgs[1].Role, msgs[2].Role})
}

func TestAppendTranscript_SplitsAfterWindow(t *testing.T) {
	l, clock := newTestLog()

	l.AppendTranscript(RoleUser, "primeiro")
	clock.t = clock.t.Add(MergeWindow)
	l.AppendTranscript(RoleUser, "segundo")

	msgs := l.Messages()
	require.Len(t, msgs, 2)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)
}

func TestMemoryContext(t *testing.T) {
	l, _ := newTestLog()
	assert.Empty(t, l.MemoryContext(DefaultMemoryTurns))

	l.Add(RoleUser, "qual é a capital?")
	l.Add(RoleModel, "Brasília.")

	want := "\n\nCONTEXTO DE CONVERSAS ANTERIORES (MEMÓRIA):\n" +
		"Usuário: qual é a capital?\n" +
		"Aria: Brasília." +
		"\n\n[FIM DA MEMÓRIA - Continue a conversa a partir daqui]"
	assert.Equal(t, want, l.MemoryContext(DefaultMemoryTurns))
}

func TestMemoryContext_KeepsLastTurns(t *testing.T) {
	l, _ := newTestLog()
	for i := 0; i < 20; i++ {
		l.Add(RoleUser, string(rune('a'+i)))
	}

	ctx := l.MemoryContext(15)
	assert.Equal(t, 15, strings.Count(ctx, "Usuário: "))
	assert.NotContains(t, ctx, "Usuário: e\n")
	assert.Contains(t, ctx, "Usuário: f\n")
	assert.Contains(t, ctx, "Usuário: t\n")
}

func TestLastAndClear(t *testing.T) {
	l, _ := newTestLog()
	l.Add(RoleUser, "a")
	l.Add(RoleModel, "b")
	l.Add(RoleUser, "c")

	last := l.Last(2)
	require.Len(t, last, 2)
	assert.Equal(t, "b", last[0].Text)
	assert.Len(t, l.Last(0), 3)

	l.Clear()
	assert.Equal(t, 0, l.Len())
}

func sample() []Message {
	ts := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	return []Message{
		{ID: "1", Role: RoleUser, Text: "oi", Timestamp: ts},
		{ID: "2", Role: RoleModel, Text: "olá", Timestamp: ts.Add(time.Second)},
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "messages.json"))

	msgs, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, s.Save(ctx, sample()))
	msgs, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample(), msgs)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	msgs, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func setupRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, opts...), mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedisStore(t)

	msgs, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, s.Save(ctx, sample()))
	assert.True(t, mr.Exists(DefaultKey))

	msgs, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample(), msgs)

	require.NoError(t, s.Clear(ctx))
	assert.False(t, mr.Exists(DefaultKey))
}

func TestRedisStore_KeyAndTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedisStore(t, WithKey("custom"), WithTTL(time.Hour))

	require.NoError(t, s.Save(ctx, sample()))
	assert.True(t, mr.Exists("custom"))
	assert.Equal(t, time.Hour, mr.TTL("custom"))

	mr.FastForward(2 * time.Hour)
	msgs, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	s, mr := setupRedisStore(t)
	require.NoError(t, mr.Set(DefaultKey, "not json"))

	_, err := s.Load(context.Background())
	assert.Error(t, err)
}
