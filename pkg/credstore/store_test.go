package credstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cognify-learn/cognify/pkg/credstore"
	"github.com/cognify-learn/cognify/pkg/slogx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*credstore.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return credstore.NewRedisStore(rdb, "test", ttl), mr
}

func TestStoreContract(t *testing.T) {
	stores := map[string]func(t *testing.T) credstore.Store{
		"memory": func(t *testing.T) credstore.Store { return credstore.NewMemoryStore() },
		"file": func(t *testing.T) credstore.Store {
			return credstore.NewFileStore(filepath.Join(t.TempDir(), "credentials.json"), slogx.Discard())
		},
		"redis": func(t *testing.T) credstore.Store {
			s, _ := newRedisStore(t, 0)
			return s
		},
	}

	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mk(t)

			_, err := s.Load(ctx, credstore.CredentialKey)
			require.ErrorIs(t, err, credstore.ErrNotFound)

			require.NoError(t, s.Save(ctx, credstore.CredentialKey, "a.b.c"))
			require.NoError(t, s.Save(ctx, credstore.RefreshCookieKey, "r1"))

			v, err := s.Load(ctx, credstore.CredentialKey)
			require.NoError(t, err)
			require.Equal(t, "a.b.c", v)

			require.NoError(t, s.Save(ctx, credstore.CredentialKey, "d.e.f"))
			v, err = s.Load(ctx, credstore.CredentialKey)
			require.NoError(t, err)
			require.Equal(t, "d.e.f", v)

			require.NoError(t, s.Delete(ctx, credstore.CredentialKey))
			require.NoError(t, s.Delete(ctx, credstore.CredentialKey), "delete is idempotent")
			_, err = s.Load(ctx, credstore.CredentialKey)
			require.ErrorIs(t, err, credstore.ErrNotFound)

			v, err = s.Load(ctx, credstore.RefreshCookieKey)
			require.NoError(t, err)
			require.Equal(t, "r1", v, "other keys are untouched")
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")

	require.NoError(t, credstore.NewFileStore(path, nil).Save(ctx, credstore.CredentialKey, "tok"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	v, err := credstore.NewFileStore(path, nil).Load(ctx, credstore.CredentialKey)
	require.NoError(t, err)
	require.Equal(t, "tok", v)
}

func TestFileStoreCorruptDocumentIsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := credstore.NewFileStore(path, slogx.Discard())
	_, err := s.Load(ctx, credstore.CredentialKey)
	require.ErrorIs(t, err, credstore.ErrNotFound)

	// Writing replaces the corrupt document.
	require.NoError(t, s.Save(ctx, credstore.CredentialKey, "fresh"))
	v, err := s.Load(ctx, credstore.CredentialKey)
	require.NoError(t, err)
	require.Equal(t, "fresh", v)
}

func TestFileStoreWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "credentials.json")
	watched := credstore.NewFileStore(path, slogx.Discard())

	changes := make(chan map[string]string, 16)
	require.NoError(t, watched.Watch(ctx, func(doc map[string]string) { changes <- doc }))

	// Another process writing the same file.
	other := credstore.NewFileStore(path, slogx.Discard())
	require.NoError(t, other.Save(ctx, credstore.CredentialKey, "from-elsewhere"))

	require.Eventually(t, func() bool {
		select {
		case doc := <-changes:
			return doc[credstore.CredentialKey] == "from-elsewhere"
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRedisStoreTTLAndPrefix(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Hour)

	require.NoError(t, s.Save(ctx, credstore.CredentialKey, "tok"))
	require.True(t, mr.Exists("test:accessToken"))
	require.Equal(t, time.Hour, mr.TTL("test:accessToken"))

	mr.FastForward(2 * time.Hour)
	_, err := s.Load(ctx, credstore.CredentialKey)
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 0)
	mr.Close()

	_, err := s.Load(ctx, credstore.CredentialKey)
	require.Error(t, err)
	require.NotErrorIs(t, err, credstore.ErrNotFound)
}
