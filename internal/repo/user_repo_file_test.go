package repo

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"go-gin-auth-backend/internal/domain"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(FileStoreOptions{Path: filepath.Join(t.TempDir(), "data", "users.json")})
	require.NoError(t, err)
	return s
}

func TestFileStore_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) domain.UserRepository { return newFileStore(t) })
}

func TestFileStore_CreatesEmptyFileOnFirstUse(t *testing.T) {
	s := newFileStore(t)

	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(b))
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")

	a, err := NewFileStore(FileStoreOptions{Path: path})
	require.NoError(t, err)
	u, err := a.Create(ctx, &domain.User{Email: "p@x.com", Name: "p", Password: "hash"})
	require.NoError(t, err)
	_, err = a.UpdateRefreshToken(ctx, u.ID, "rt")
	require.NoError(t, err)

	b, err := NewFileStore(FileStoreOptions{Path: path})
	require.NoError(t, err)
	got, err := b.FindByEmail(ctx, "p@x.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, u.ID, got.ID)
	require.True(t, got.HasRefreshToken("rt"))
}

func TestFileStore_FileLayout(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	_, err := s.Create(ctx, &domain.User{Email: "j@x.com", Name: "j", Password: "hash"})
	require.NoError(t, err)

	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "[\n  {"), "file should be pretty printed")

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Len(t, raw, 1)
	for _, key := range []string{"id", "email", "password", "name", "createdAt", "lastLogin", "refreshToken"} {
		require.Contains(t, raw[0], key)
	}
	require.Nil(t, raw[0]["lastLogin"])
	require.Nil(t, raw[0]["refreshToken"])
}

func TestFileStore_TolerantCorruptionReadsEmptyAndPreservesFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	core, logs := observer.New(zap.ErrorLevel)
	s, err := NewFileStore(FileStoreOptions{Path: path, Logger: zap.New(core)})
	require.NoError(t, err)
	require.NotZero(t, logs.FilterMessage("user store unreadable, treating as empty").Len())

	users, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, users)

	_, err = s.Create(ctx, &domain.User{Email: "n@x.com", Name: "n", Password: "h"})
	require.NoError(t, err)

	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	kept, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.Equal(t, "{not json", string(kept))

	users, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestFileStore_StrictCorruptionFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	_, err := NewFileStore(FileStoreOptions{Path: path, FailOnCorrupt: true})
	require.ErrorIs(t, err, domain.ErrStoreCorrupt)
}

func TestFileStore_StrictCorruptionAfterStart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")
	s, err := NewFileStore(FileStoreOptions{Path: path, FailOnCorrupt: true})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))
	_, err = s.FindByEmail(ctx, "a@x.com")
	require.ErrorIs(t, err, domain.ErrStoreCorrupt)
	_, err = s.Create(ctx, &domain.User{Email: "a@x.com"})
	require.ErrorIs(t, err, domain.ErrStoreCorrupt)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "garbage", string(b), "strict store must not overwrite")
}

func TestFileStore_NoTempFilesLeftBehind(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	for i := 0; i < 5; i++ {
		_, err := s.Create(ctx, &domain.User{Email: string(rune('a'+i)) + "@x.com", Name: "n", Password: "h"})
		require.NoError(t, err)
	}
	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileStore_RewriteKeepsFileMode(t *testing.T) {
	s := newFileStore(t)
	require.NoError(t, os.Chmod(s.Path(), 0o600))

	_, err := s.Create(context.Background(), &domain.User{Email: "m@x.com", Name: "m", Password: "h"})
	require.NoError(t, err)

	fi, err := os.Stat(s.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

func TestNewFileStore_EmptyPath(t *testing.T) {
	_, err := NewFileStore(FileStoreOptions{})
	require.Error(t, err)
}
