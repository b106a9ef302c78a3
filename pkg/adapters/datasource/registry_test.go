package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistry(t *testing.T) {
	called := false
	Register(AdapterRegistration{
		Info: AdapterInfo{Type: "test-registry", DisplayName: "Test"},
		Factory: func(ctx context.Context, params ConnectionParams, connMgr *ConnectionManager, logger *zap.Logger) (Adapter, error) {
			called = true
			return nil, nil
		},
	})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, "test-registry")
		registryMu.Unlock()
	})

	assert.True(t, IsRegistered("test-registry"))
	assert.False(t, IsRegistered("oracle"))

	var types []string
	for _, info := range RegisteredAdapters() {
		types = append(types, info.Type)
	}
	assert.Contains(t, types, "test-registry")

	_, err := NewAdapter(context.Background(), ConnectionParams{Type: "test-registry"}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, called)

	_, err = NewAdapter(context.Background(), ConnectionParams{Type: "oracle"}, nil, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported datasource type")
}
