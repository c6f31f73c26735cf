package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRejectsInvalidRefs(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	testCases := []struct {
		name    string
		ref     string
		wantErr string
	}{
		{name: "empty", ref: "", wantErr: "credential ref is empty"},
		{name: "whitespace", ref: "   ", wantErr: "credential ref is empty"},
		{name: "absolute", ref: "/absolute/path", wantErr: "invalid credential ref"},
		{name: "traversal", ref: "../escape", wantErr: "invalid credential ref"},
		{name: "deep traversal", ref: "../../secret", wantErr: "invalid credential ref"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Put(context.Background(), tc.ref, domain.Credential{AccessToken: "value"})
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestStorePutGetRoundTripAndPermissions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	ref := "accounts/acc-1"
	want := domain.Credential{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		ExpiresAt:    time.Date(2026, 10, 14, 13, 0, 0, 0, time.UTC),
	}

	require.NoError(t, store.Put(context.Background(), ref, want))

	got, err := store.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(filepath.Join(root, "accounts", "acc-1.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(credentialFileMod), info.Mode().Perm())
}

func TestStorePutOverwritesExistingCredential(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ref := "acc-1"

	require.NoError(t, store.Put(context.Background(), ref, domain.Credential{AccessToken: "old", RefreshToken: "keep"}))
	require.NoError(t, store.Put(context.Background(), ref, domain.Credential{AccessToken: "new"}))

	got, err := store.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, domain.Credential{AccessToken: "new"}, got)
}

func TestStoreGetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	_, err := store.Get(context.Background(), "acc-missing")
	require.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestStoreGetMalformedFileReturnsError(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "acc-1.toml"), []byte("access_token = "), 0o600))

	_, err := NewStore(root).Get(context.Background(), "acc-1")
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode credential")
}

func TestStoreDeleteIsIdempotentWhenCredentialMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ref := "accounts/acc-1"

	require.NoError(t, store.Put(context.Background(), ref, domain.Credential{AccessToken: "token"}))
	require.NoError(t, store.Delete(context.Background(), ref))
	require.NoError(t, store.Delete(context.Background(), ref))

	_, err := store.Get(context.Background(), ref)
	require.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestStoreCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewStore(t.TempDir())
	require.ErrorIs(t, store.Put(ctx, "acc-1", domain.Credential{}), context.Canceled)
	_, err := store.Get(ctx, "acc-1")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, store.Delete(ctx, "acc-1"), context.Canceled)
}
