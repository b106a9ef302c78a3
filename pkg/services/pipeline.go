package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/audit"
	"github.com/ekaya-inc/ekaya-askdb/pkg/llm"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	"github.com/ekaya-inc/ekaya-askdb/pkg/observability"
	"github.com/ekaya-inc/ekaya-askdb/pkg/prompts"
	"github.com/ekaya-inc/ekaya-askdb/pkg/retry"
	"github.com/ekaya-inc/ekaya-askdb/pkg/sql"
)

// EmptyQuestionMessage is returned for a blank question.
const EmptyQuestionMessage = "Query cannot be empty"

// PipelineConfig holds the prompt inputs that do not change per question.
type PipelineConfig struct {
	Dialect      models.SQLDialect
	DefaultTable string
	Tables       []string
	Glossary     prompts.Glossary

	// MaxRetries re-sends retryable model failures. Zero sends once.
	MaxRetries int
}

// QueryPipeline turns a question into an executed statement.
type QueryPipeline struct {
	schema   SchemaService
	model    llm.Completer
	executor *GuardedExecutor
	auditor  *audit.SecurityAuditor
	cfg      PipelineConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewQueryPipeline wires the pipeline stages together.
func NewQueryPipeline(
	schema SchemaService,
	model llm.Completer,
	executor *GuardedExecutor,
	auditor *audit.SecurityAuditor,
	cfg PipelineConfig,
	logger *zap.Logger,
) *QueryPipeline {
	return &QueryPipeline{
		schema:   schema,
		model:    model,
		executor: executor,
		auditor:  auditor,
		cfg:      cfg,
		logger:   logger.Named("pipeline"),
		now:      time.Now,
	}
}

// Answer runs schema, prompt, generation, validation and execution in order.
// A failure before execution sets the envelope's top-level Error and stops;
// execution failures are reported inside Results. Answer never returns nil.
func (p *QueryPipeline) Answer(ctx context.Context, question string) *models.ResponseEnvelope {
	start := p.now()
	question = strings.TrimSpace(question)
	env := &models.ResponseEnvelope{NaturalQuery: question}

	err := p.answer(ctx, question, env)
	code := apperrors.Code(err)
	if err == nil && env.Results != nil && !env.Results.Success() {
		code = apperrors.Code(apperrors.ErrExecutionFailed)
	}
	observability.IncrementAnswers(code)

	fields := []zap.Field{
		zap.String("outcome", code),
		zap.Duration("duration", p.now().Sub(start)),
		zap.String("sql", logging.SanitizeQuery(env.GeneratedSQL)),
	}
	if rid := llm.RequestIDFromContext(ctx); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	if env.Results != nil {
		fields = append(fields, zap.Int("row_count", env.Results.RowCount()))
	}
	p.logger.Info("Question answered", fields...)

	return env
}

func (p *QueryPipeline) answer(ctx context.Context, question string, env *models.ResponseEnvelope) error {
	if question == "" {
		env.Error = EmptyQuestionMessage
		return apperrors.ErrEmptyQuestion
	}

	if finding := sql.ScreenQuestion(question); finding != nil {
		observability.IncrementInjectionFindings()
		p.auditor.LogQuestionInjection(ctx, question, finding.Fingerprint)
	}

	stage := p.now()
	schemaText, err := p.schema.GetSchemaText(ctx)
	p.observe(observability.StageSchema, stage, err)
	if err != nil {
		return p.fail(env, err)
	}

	stage = p.now()
	prompt := prompts.BuildSQLGenerationPrompt(question, schemaText, prompts.Options{
		Dialect:      p.cfg.Dialect,
		DefaultTable: p.cfg.DefaultTable,
		Tables:       p.cfg.Tables,
		Glossary:     p.cfg.Glossary,
		Now:          p.now(),
	})
	p.observe(observability.StagePrompt, stage, nil)

	stage = p.now()
	raw, err := p.generate(ctx, prompt)
	p.observe(observability.StageGenerate, stage, err)
	if err != nil {
		return p.fail(env, err)
	}

	stage = p.now()
	stmt, err := sql.ExtractAndValidate(sql.CandidateStatement(raw))
	p.observe(observability.StageValidate, stage, err)
	if err != nil {
		observability.IncrementUnsafeStatements()
		p.auditor.LogUnsafeStatement(ctx, question, raw, err)
		return p.fail(env, err)
	}
	env.GeneratedSQL = stmt.String()

	stage = p.now()
	result := p.executor.Execute(ctx, stmt)
	var execErr error
	if !result.Success() {
		execErr = apperrors.ErrExecutionFailed
	}
	p.observe(observability.StageExecute, stage, execErr)
	p.auditor.LogQueryExecution(ctx, env.GeneratedSQL, result.Success(), result.RowCount())
	env.Results = result

	return nil
}

// generate calls the model, retrying only failures the model client marks
// transient. Every failure is reported as ErrGenerationUnavailable.
func (p *QueryPipeline) generate(ctx context.Context, prompt string) (string, error) {
	cfg := retry.GenerationConfig(p.cfg.MaxRetries)
	cfg.OnRetry = func(attempt int, err error) {
		p.logger.Warn("Retrying SQL generation",
			zap.Int("attempt", attempt),
			zap.String("model", p.model.GetModel()),
			zap.String("error", logging.SanitizeError(err)),
		)
	}

	var raw string
	err := retry.DoIfRetryable(ctx, cfg, func() error {
		out, err := p.model.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrGenerationUnavailable, err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty model response", apperrors.ErrGenerationUnavailable)
	}
	return raw, nil
}

func (p *QueryPipeline) fail(env *models.ResponseEnvelope, err error) error {
	env.Error = logging.SanitizeError(err)
	return err
}

func (p *QueryPipeline) observe(stage string, start time.Time, err error) {
	observability.ObserveStage(stage, apperrors.Code(err), p.now().Sub(start))
}
