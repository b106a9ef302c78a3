package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// AdapterInfo describes a registered adapter.
type AdapterInfo struct {
	Type        string `json:"type"`         // "postgres", "mssql"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description"`
}

// AdapterFactory opens an adapter whose pool is owned by connMgr.
type AdapterFactory func(ctx context.Context, params ConnectionParams, connMgr *ConnectionManager, logger *zap.Logger) (Adapter, error)

// AdapterRegistration contains info + factory for creating adapters.
type AdapterRegistration struct {
	Info    AdapterInfo
	Factory AdapterFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// GetFactory returns the factory for a datasource type, or nil.
func GetFactory(dsType string) AdapterFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[dsType]; ok {
		return reg.Factory
	}
	return nil
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dsType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dsType]
	return ok
}

// NewAdapter opens an adapter of params.Type through the registry.
func NewAdapter(ctx context.Context, params ConnectionParams, connMgr *ConnectionManager, logger *zap.Logger) (Adapter, error) {
	factory := GetFactory(params.Type)
	if factory == nil {
		return nil, fmt.Errorf("unsupported datasource type: %s (not compiled in)", params.Type)
	}
	return factory(ctx, params, connMgr, logger)
}
