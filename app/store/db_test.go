package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-pkgz/testutils/containers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodev/shade/app/enum"
)

func TestNew(t *testing.T) {
	t.Run("creates sqlite database successfully", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")
		st, err := New(dbPath)
		require.NoError(t, err)
		defer st.Close()
		assert.Equal(t, enum.DBTypeSQLite, st.dbType)
		assert.NotNil(t, st.db)
	})

	t.Run("fails with invalid path", func(t *testing.T) {
		_, err := New("/nonexistent/dir/test.db")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect")
	})
}

func TestStore_SetGet(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	t.Run("set and get value", func(t *testing.T) {
		err := st.Set("profile1", "autodev-theme", "dark")
		require.NoError(t, err)

		value, err := st.Get("profile1", "autodev-theme")
		require.NoError(t, err)
		assert.Equal(t, "dark", value)
	})

	t.Run("update existing preference", func(t *testing.T) {
		err := st.Set("profile2", "autodev-theme", "dark")
		require.NoError(t, err)

		err = st.Set("profile2", "autodev-theme", "light")
		require.NoError(t, err)

		value, err := st.Get("profile2", "autodev-theme")
		require.NoError(t, err)
		assert.Equal(t, "light", value)
	})

	t.Run("get nonexistent preference returns ErrNotFound", func(t *testing.T) {
		_, err := st.Get("profile1", "nonexistent")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("profiles are isolated", func(t *testing.T) {
		err := st.Set("alice", "autodev-theme", "dark")
		require.NoError(t, err)

		_, err = st.Get("bob", "autodev-theme")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("handles empty value", func(t *testing.T) {
		err := st.Set("profile3", "empty", "")
		require.NoError(t, err)

		value, err := st.Get("profile3", "empty")
		require.NoError(t, err)
		assert.Empty(t, value)
	})
}

func TestStore_UpdatedAt(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	err := st.Set("p", "autodev-theme", "dark")
	require.NoError(t, err)

	prefs, err := st.List("p")
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	created, updated1 := prefs[0].CreatedAt, prefs[0].UpdatedAt
	assert.Equal(t, created, updated1, "created_at and updated_at should match on insert")

	time.Sleep(10 * time.Millisecond)
	err = st.Set("p", "autodev-theme", "light")
	require.NoError(t, err)

	prefs, err = st.List("p")
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, created, prefs[0].CreatedAt, "created_at should not change on update")
	assert.True(t, prefs[0].UpdatedAt.After(updated1), "updated_at should change on update")
}

func TestStore_Delete(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	t.Run("delete existing preference", func(t *testing.T) {
		err := st.Set("p", "autodev-theme", "dark")
		require.NoError(t, err)

		err = st.Delete("p", "autodev-theme")
		require.NoError(t, err)

		_, err = st.Get("p", "autodev-theme")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete nonexistent preference returns ErrNotFound", func(t *testing.T) {
		err := st.Delete("p", "nonexistent")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_List(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	t.Run("empty profile returns empty slice", func(t *testing.T) {
		prefs, err := st.List("nobody")
		require.NoError(t, err)
		assert.Empty(t, prefs)
	})

	t.Run("returns preferences ordered by key", func(t *testing.T) {
		require.NoError(t, st.Set("p", "autodev-theme", "dark"))
		require.NoError(t, st.Set("p", "autodev-lang", "en"))
		require.NoError(t, st.Set("other", "autodev-theme", "light"))

		prefs, err := st.List("p")
		require.NoError(t, err)
		require.Len(t, prefs, 2)
		assert.Equal(t, "autodev-lang", prefs[0].Key)
		assert.Equal(t, "autodev-theme", prefs[1].Key)
		assert.Equal(t, "dark", prefs[1].Value)
	})
}

func TestStore_ReopenPersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Set("p", "autodev-theme", "dark"))
	require.NoError(t, st.Close())

	st2, err := New(dbPath)
	require.NoError(t, err)
	defer st2.Close()

	value, err := st2.Get("p", "autodev-theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", value, "preference survives restart")
}

func TestProfileView(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	view := NewProfileView(st, "visitor-1")

	_, err := view.Get("autodev-theme")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, view.Set("autodev-theme", "dark"))

	value, err := view.Get("autodev-theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", value)

	// other profiles don't see the value
	_, err = NewProfileView(st, "visitor-2").Get("autodev-theme")
	require.ErrorIs(t, err, ErrNotFound)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := New(dbPath)
	require.NoError(t, err)
	return st
}

// PostgreSQL tests using testcontainers

func TestStore_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	t.Log("starting postgres container...")
	pgContainer := containers.NewPostgresTestContainerWithDB(ctx, t, "shade_test")
	defer pgContainer.Close(ctx)
	t.Log("postgres container started")

	st, err := New(pgContainer.ConnectionString())
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, enum.DBTypePostgres, st.dbType)

	t.Run("set and get value", func(t *testing.T) {
		err := st.Set("pgprofile", "autodev-theme", "dark")
		require.NoError(t, err)

		value, err := st.Get("pgprofile", "autodev-theme")
		require.NoError(t, err)
		assert.Equal(t, "dark", value)
	})

	t.Run("update existing preference", func(t *testing.T) {
		err := st.Set("pgprofile2", "autodev-theme", "dark")
		require.NoError(t, err)

		err = st.Set("pgprofile2", "autodev-theme", "light")
		require.NoError(t, err)

		value, err := st.Get("pgprofile2", "autodev-theme")
		require.NoError(t, err)
		assert.Equal(t, "light", value)
	})

	t.Run("get nonexistent preference returns ErrNotFound", func(t *testing.T) {
		_, err := st.Get("pgprofile", "nonexistent")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete preference", func(t *testing.T) {
		err := st.Set("pgprofile3", "autodev-theme", "dark")
		require.NoError(t, err)

		err = st.Delete("pgprofile3", "autodev-theme")
		require.NoError(t, err)

		err = st.Delete("pgprofile3", "autodev-theme")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list preferences", func(t *testing.T) {
		require.NoError(t, st.Set("pglist", "autodev-theme", "dark"))
		require.NoError(t, st.Set("pglist", "autodev-lang", "en"))

		prefs, err := st.List("pglist")
		require.NoError(t, err)
		assert.Len(t, prefs, 2)
	})
}
