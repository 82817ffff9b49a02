package auth

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockKeyRepo struct {
	byHash map[string]*APIKeyInfo
}

func (m *mockKeyRepo) FindByHash(_ context.Context, hash string) (*APIKeyInfo, error) {
	info, ok := m.byHash[hash]
	if !ok {
		return nil, errors.New("api key not found")
	}
	return info, nil
}

func TestVerifier(t *testing.T) {
	pepper := []byte("test-pepper")
	rawKey := "zv_live_abc123"
	hash := HashKey(rawKey, pepper)

	repo := &mockKeyRepo{byHash: map[string]*APIKeyInfo{
		hash: {ID: "k1", KeyHash: hash, Name: "admin", Scopes: []string{"admin"}},
	}}
	v := NewVerifier(repo, pepper)

	t.Run("valid key", func(t *testing.T) {
		info, err := v.Verify(context.Background(), rawKey)
		require.NoError(t, err)
		assert.Equal(t, "admin", info.Name)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "zv_live_wrong")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("stored hash mismatch", func(t *testing.T) {
		other := HashKey("other", pepper)
		repo := &mockKeyRepo{byHash: map[string]*APIKeyInfo{
			hash: {ID: "k1", KeyHash: other, Name: "admin"},
		}}
		_, err := NewVerifier(repo, pepper).Verify(context.Background(), rawKey)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("different pepper yields different hash", func(t *testing.T) {
		assert.NotEqual(t, HashKey(rawKey, pepper), HashKey(rawKey, []byte("other")))
	})
}
