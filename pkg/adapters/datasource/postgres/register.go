package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+, Aurora PostgreSQL, Supabase",
		},
		Factory: func(ctx context.Context, params datasource.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (datasource.Adapter, error) {
			return NewAdapter(ctx, params, connMgr, logger)
		},
	})
}
