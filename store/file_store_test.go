package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ewsdk/wallet-core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "envelope.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	return s, path
}

func TestFileStoreLoadMissingReturnsNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	envelope := &types.Envelope{
		AuthToken:    "tok-1",
		DeviceShare:  "1:00112233",
		Email:        "user@example.com",
		WalletUserID: "wallet-user-1",
		AuthProvider: "email",
	}
	require.NoError(t, s.Save(context.Background(), envelope))

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, envelope, loaded)
}

func TestFileStoreRemoveAuthTokenKeepsDeviceShare(t *testing.T) {
	s, _ := newTestStore(t)
	envelope := &types.Envelope{
		AuthToken:    "tok-1",
		DeviceShare:  "1:00112233",
		WalletUserID: "wallet-user-1",
		AuthProvider: "email",
	}
	require.NoError(t, s.Save(context.Background(), envelope))
	require.NoError(t, s.RemoveAuthToken(context.Background()))

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded.AuthToken)
	assert.Equal(t, "1:00112233", loaded.DeviceShare)
}

func TestFileStoreClearRemovesEnvelope(t *testing.T) {
	s, _ := newTestStore(t)
	envelope := &types.Envelope{AuthToken: "tok-1", DeviceShare: "1:00", WalletUserID: "u1", AuthProvider: "email"}
	require.NoError(t, s.Save(context.Background(), envelope))
	require.NoError(t, s.Clear(context.Background()))

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestFileStoreSaveLeavesNoTempFileBehind(t *testing.T) {
	s, dir := newTestStore(t)
	envelope := &types.Envelope{AuthToken: "tok-1", DeviceShare: "1:00", WalletUserID: "u1", AuthProvider: "email"}
	require.NoError(t, s.Save(context.Background(), envelope))

	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

// TestFileStoreSurvivesStaleTempFile simulates a crash mid-save: a
// leftover temp file from an interrupted write must never be mistaken for
// the real envelope, and a fresh Save must still succeed.
func TestFileStoreSurvivesStaleTempFile(t *testing.T) {
	s, path := newTestStore(t)
	envelope := &types.Envelope{AuthToken: "tok-1", DeviceShare: "1:00", WalletUserID: "u1", AuthProvider: "email"}
	require.NoError(t, s.Save(context.Background(), envelope))

	stale := filepath.Join(filepath.Dir(path), ".envelope-stale.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("{not valid json"), 0o600))

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, envelope, loaded)

	envelope.AuthToken = "tok-2"
	require.NoError(t, s.Save(context.Background(), envelope))
	loaded, err = s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", loaded.AuthToken)
}
