package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	"github.com/ekaya-inc/ekaya-askdb/pkg/sql"
)

// GuardedExecutor runs validated statements and reports every outcome as a
// QueryResult. Database failures become the failed shape, never an error.
type GuardedExecutor struct {
	executor datasource.StatementExecutor
	logger   *zap.Logger
}

// NewGuardedExecutor wraps executor.
func NewGuardedExecutor(executor datasource.StatementExecutor, logger *zap.Logger) *GuardedExecutor {
	return &GuardedExecutor{
		executor: executor,
		logger:   logger.Named("executor"),
	}
}

// Execute runs stmt verbatim. Only ExtractAndValidate produces a non-zero
// ValidatedStatement, so unvalidated text cannot reach the database.
func (e *GuardedExecutor) Execute(ctx context.Context, stmt sql.ValidatedStatement) *models.QueryResult {
	if stmt.IsZero() {
		return models.NewFailedResult("no statement to execute")
	}

	result, err := e.executor.Execute(ctx, stmt.String())
	if err != nil {
		msg := logging.SanitizeError(err)
		e.logger.Warn("Statement failed",
			zap.String("sql", logging.SanitizeQuery(stmt.String())),
			zap.String("error", msg),
		)
		return models.NewFailedResult(msg)
	}

	if result == nil {
		return models.NewAffectedResult(0)
	}
	if result.ReturnsRows {
		return models.NewRowsResult(result.Columns, result.Rows)
	}
	return models.NewAffectedResult(result.RowsAffected)
}
