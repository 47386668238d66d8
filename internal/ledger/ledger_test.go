package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedger_GetMissing(t *testing.T) {
	l := newTestLedger(t)
	_, ok, err := l.Get(context.Background(), "src", "a.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_PutAndGet(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	require.NoError(t, l.Put(ctx, Record{SourceID: "src", RelativePath: "a.md", ContentHash: "abc123", ModTime: now}))

	rec, ok, err := l.Get(ctx, "src", "a.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc123", rec.ContentHash)
	assert.True(t, now.Equal(rec.ModTime))
}

func TestLedger_PutOverwrites(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Put(ctx, Record{SourceID: "src", RelativePath: "a.md", ContentHash: "v1", ModTime: time.Unix(1, 0)}))
	require.NoError(t, l.Put(ctx, Record{SourceID: "src", RelativePath: "a.md", ContentHash: "v2", ModTime: time.Unix(2, 0)}))

	rec, ok, err := l.Get(ctx, "src", "a.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", rec.ContentHash)
}

func TestLedger_Delete(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Put(ctx, Record{SourceID: "src", RelativePath: "a.md", ContentHash: "v1", ModTime: time.Unix(1, 0)}))
	require.NoError(t, l.Delete(ctx, "src", "a.md"))

	_, ok, err := l.Get(ctx, "src", "a.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_ListBySource(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Put(ctx, Record{SourceID: "src", RelativePath: "a.md", ContentHash: "v1", ModTime: time.Unix(1, 0)}))
	require.NoError(t, l.Put(ctx, Record{SourceID: "src", RelativePath: "b.md", ContentHash: "v1", ModTime: time.Unix(1, 0)}))
	require.NoError(t, l.Put(ctx, Record{SourceID: "other", RelativePath: "c.md", ContentHash: "v1", ModTime: time.Unix(1, 0)}))

	paths, err := l.ListBySource(ctx, "src")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.md", "b.md"}, paths)
}
