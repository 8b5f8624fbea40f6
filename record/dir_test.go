package record

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirStore(t *testing.T, version int, clock *fakeClock) *DirStore {
	t.Helper()
	s, err := NewDirStore(memfs.New(), version, WithClock(clock.Now))
	require.NoError(t, err)
	return s
}

func TestDirStore_GetSet(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newDirStore(t, 1, clock)
	key := []byte(`{"args":[1,2],"kwargs":[]}`)

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, key, []byte(`{"value":3}`), time.Minute))

	rec, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"value":3}`, string(rec.Value))
	assert.True(t, rec.CreatedAt.Equal(clock.Now()))
	assert.Equal(t, time.Minute, rec.TTL)
}

func TestDirStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := newDirStore(t, 1, newFakeClock())
	key := []byte("k")

	require.NoError(t, s.Set(ctx, key, []byte("first"), NoExpiry))
	require.NoError(t, s.Set(ctx, key, []byte("second"), NoExpiry))

	rec, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", string(rec.Value))

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDirStore_ExpiredIsEvicted(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newDirStore(t, 1, clock)
	key := []byte("k")

	require.NoError(t, s.Set(ctx, key, []byte("v"), 100*time.Millisecond))
	clock.Advance(101 * time.Millisecond)

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDirStore_VersionMismatchReadsAbsent(t *testing.T) {
	ctx := context.Background()
	fsys := memfs.New()
	clock := newFakeClock()

	v1, err := NewDirStore(fsys, 1, WithClock(clock.Now))
	require.NoError(t, err)
	require.NoError(t, v1.Set(ctx, []byte("k"), []byte("v"), NoExpiry))

	v2, err := NewDirStore(fsys, 2, WithClock(clock.Now))
	require.NoError(t, err)
	_, ok, err := v2.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	// The old version is still readable by a store that asks for it.
	_, ok, err = v1.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDirStore_KeyMismatchReadsAbsent(t *testing.T) {
	ctx := context.Background()
	fsys := memfs.New()
	s, err := NewDirStore(fsys, 1)
	require.NoError(t, err)

	// Simulate a file-name collision: another key's entry under our name.
	require.NoError(t, s.Set(ctx, []byte("other"), []byte("v"), NoExpiry))
	require.NoError(t, fsys.Rename(FileName([]byte("other")), FileName([]byte("mine"))))

	_, ok, err := s.Get(ctx, []byte("mine"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDirStore_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	fsys := memfs.New()
	s, err := NewDirStore(fsys, 1)
	require.NoError(t, err)

	require.NoError(t, util.WriteFile(fsys, FileName([]byte("k")), []byte("{not json"), 0o644))

	_, ok, err := s.Get(ctx, []byte("k"))
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCorrupt)

	// A fresh write replaces the corrupt file.
	require.NoError(t, s.Set(ctx, []byte("k"), []byte("v"), NoExpiry))
	_, ok, err = s.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDirStore_ClearLeavesOtherFiles(t *testing.T) {
	ctx := context.Background()
	fsys := memfs.New()
	s, err := NewDirStore(fsys, 1)
	require.NoError(t, err)

	require.NoError(t, util.WriteFile(fsys, "func.txt", []byte("/src/app.go/app.run"), 0o644))
	require.NoError(t, s.Set(ctx, []byte("a"), []byte("1"), NoExpiry))
	require.NoError(t, s.Set(ctx, []byte("b"), []byte("2"), NoExpiry))

	require.NoError(t, s.Clear(ctx))

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	marker, err := util.ReadFile(fsys, "func.txt")
	require.NoError(t, err)
	assert.Equal(t, "/src/app.go/app.run", string(marker))
}

func TestDirStore_Prune(t *testing.T) {
	ctx := context.Background()
	fsys := memfs.New()
	clock := newFakeClock()

	old, err := NewDirStore(fsys, 1, WithClock(clock.Now))
	require.NoError(t, err)
	require.NoError(t, old.Set(ctx, []byte("old-version"), []byte("v"), NoExpiry))

	s, err := NewDirStore(fsys, 2, WithClock(clock.Now))
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, []byte("keep"), []byte("v"), NoExpiry))
	require.NoError(t, s.Set(ctx, []byte("expire"), []byte("v"), time.Second))
	require.NoError(t, util.WriteFile(fsys, FileName([]byte("corrupt")), []byte("nope"), 0o644))

	clock.Advance(2 * time.Second)

	removed, err := s.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok, err := s.Get(ctx, []byte("keep"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDirStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newDirStore(t, 1, newFakeClock())

	require.NoError(t, s.Set(ctx, []byte("k"), []byte("v"), NoExpiry))
	require.NoError(t, s.Delete(ctx, []byte("k")))
	require.NoError(t, s.Delete(ctx, []byte("k")))

	_, ok, err := s.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDirStore_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	fsys := osfs.New(t.TempDir())
	s, err := NewDirStore(fsys, 1)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, []byte("k"), []byte("v"), NoExpiry))

	infos, err := fsys.ReadDir(".")
	require.NoError(t, err)
	for _, info := range infos {
		assert.False(t, strings.HasPrefix(info.Name(), tempPrefix), info.Name())
	}
	assert.Equal(t, fsys.Root(), s.Root())
}

func TestDirStore_ConcurrentWritersLastWins(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	key := []byte("shared")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := NewDirStore(osfs.New(root), 1)
			if err != nil {
				t.Error(err)
				return
			}
			if err := s.Set(ctx, key, []byte{'0' + byte(i)}, NoExpiry); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	s, err := NewDirStore(osfs.New(root), 1)
	require.NoError(t, err)
	rec, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, rec.Value, 1)
}

func TestDirStore_InvalidInput(t *testing.T) {
	_, err := NewDirStore(nil, 1)
	assert.ErrorIs(t, err, ErrNilFilesystem)

	s := newDirStore(t, 1, newFakeClock())
	assert.ErrorIs(t, s.Set(context.Background(), nil, []byte("v"), NoExpiry), ErrInvalidKey)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = s.Get(ctx, []byte("k"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileName_Stable(t *testing.T) {
	assert.Equal(t, FileName([]byte("k")), FileName([]byte("k")))
	assert.NotEqual(t, FileName([]byte("a")), FileName([]byte("b")))
	assert.True(t, strings.HasSuffix(FileName([]byte("k")), Ext))
}
