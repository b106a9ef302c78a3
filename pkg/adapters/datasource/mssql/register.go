package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2016+ and Azure SQL Database with SQL authentication",
		},
		Factory: func(ctx context.Context, params datasource.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (datasource.Adapter, error) {
			return NewAdapter(ctx, params, connMgr, logger)
		},
	})
}
