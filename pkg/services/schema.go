package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/config"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	"github.com/ekaya-inc/ekaya-askdb/pkg/observability"
)

// MaxSampleRows caps sample rows per table regardless of configuration.
const MaxSampleRows = 3

// DefaultIntrospectionTimeout bounds one introspection when none is configured.
const DefaultIntrospectionTimeout = 30 * time.Second

const schemaFlightKey = "schema"

// SchemaService provides the cached description of the target database.
type SchemaService interface {
	// GetSchema returns the snapshot, introspecting the datasource on first use.
	// Concurrent first callers share one introspection.
	GetSchema(ctx context.Context) (*models.SchemaSnapshot, error)

	// GetSchemaText returns the rendered snapshot used in prompts.
	GetSchemaText(ctx context.Context) (string, error)

	// Refresh drops the cache and introspects again.
	Refresh(ctx context.Context) (*models.SchemaSnapshot, error)

	// Invalidate drops the cache. The next GetSchema introspects.
	Invalidate()
}

type cachedSchema struct {
	snapshot *models.SchemaSnapshot
	text     string
}

type schemaService struct {
	introspector datasource.SchemaIntrospector
	dialect      models.SQLDialect
	tables       []string
	sampleRows   int
	timeout      time.Duration
	logger       *zap.Logger
	now          func() time.Time

	mu     sync.RWMutex
	cached *cachedSchema
	gen    uint64 // bumped by Invalidate
	group  singleflight.Group
}

var _ SchemaService = (*schemaService)(nil)

// NewSchemaService creates a schema service over introspector.
func NewSchemaService(
	introspector datasource.SchemaIntrospector,
	dialect models.SQLDialect,
	cfg config.SchemaConfig,
	logger *zap.Logger,
) SchemaService {
	sampleRows := cfg.SampleRows
	if sampleRows > MaxSampleRows {
		sampleRows = MaxSampleRows
	}
	if sampleRows < 0 {
		sampleRows = 0
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultIntrospectionTimeout
	}
	return &schemaService{
		introspector: introspector,
		dialect:      dialect,
		tables:       cfg.Tables,
		sampleRows:   sampleRows,
		timeout:      timeout,
		logger:       logger.Named("schema"),
		now:          time.Now,
	}
}

func (s *schemaService) GetSchema(ctx context.Context) (*models.SchemaSnapshot, error) {
	c, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	return c.snapshot, nil
}

func (s *schemaService) GetSchemaText(ctx context.Context) (string, error) {
	c, err := s.get(ctx)
	if err != nil {
		return "", err
	}
	return c.text, nil
}

func (s *schemaService) Refresh(ctx context.Context) (*models.SchemaSnapshot, error) {
	s.Invalidate()
	return s.GetSchema(ctx)
}

func (s *schemaService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.gen++
	s.mu.Unlock()
	// An introspection already in flight must not satisfy callers arriving after this.
	s.group.Forget(schemaFlightKey)
}

func (s *schemaService) get(ctx context.Context) (*cachedSchema, error) {
	s.mu.RLock()
	c := s.cached
	s.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	// The flight outlives any one caller: each waiter gives up on its own
	// context while the introspection runs to completion or its timeout.
	ch := s.group.DoChan(schemaFlightKey, func() (any, error) {
		s.mu.RLock()
		c, gen := s.cached, s.gen
		s.mu.RUnlock()
		if c != nil {
			return c, nil
		}

		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		snapshot, err := s.introspect(flightCtx)
		observability.ObserveSchemaIntrospection(err)
		if err != nil {
			s.logger.Error("Schema introspection failed", zap.Error(err))
			return nil, err
		}

		c = &cachedSchema{snapshot: snapshot, text: snapshot.Render()}
		s.mu.Lock()
		if s.gen == gen {
			s.cached = c
		}
		s.mu.Unlock()
		return c, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*cachedSchema), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSchemaUnavailable, ctx.Err())
	}
}

// introspect builds a complete snapshot or fails. Nothing partial escapes.
func (s *schemaService) introspect(ctx context.Context) (*models.SchemaSnapshot, error) {
	start := s.now()

	refs, err := s.introspector.ListTables(ctx, s.tables)
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %w", apperrors.ErrSchemaUnavailable, err)
	}

	tables := make([]models.TableDescriptor, 0, len(refs))
	for _, ref := range refs {
		table, err := s.describeTable(ctx, ref)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}

	s.logger.Info("Schema introspected",
		zap.Int("tables", len(tables)),
		zap.Duration("elapsed", s.now().Sub(start)),
	)

	return &models.SchemaSnapshot{Tables: tables, CapturedAt: s.now().UTC()}, nil
}

func (s *schemaService) describeTable(ctx context.Context, ref datasource.TableRef) (models.TableDescriptor, error) {
	columns, err := s.introspector.DescribeColumns(ctx, ref)
	if err != nil {
		return models.TableDescriptor{}, fmt.Errorf("%w: describe %s.%s: %w", apperrors.ErrSchemaUnavailable, ref.Schema, ref.Name, err)
	}

	table := models.TableDescriptor{
		Name:    ref.Name,
		Columns: make([]models.ColumnDescriptor, len(columns)),
	}
	if !strings.EqualFold(ref.Schema, s.dialect.DefaultSchema) {
		table.Schema = ref.Schema
	}
	for i, col := range columns {
		table.Columns[i] = toColumnDescriptor(col)
	}

	if s.sampleRows > 0 {
		sample, err := s.introspector.SampleRows(ctx, ref, s.sampleRows)
		if err != nil {
			return models.TableDescriptor{}, fmt.Errorf("%w: sample %s.%s: %w", apperrors.ErrSchemaUnavailable, ref.Schema, ref.Name, err)
		}
		if sample != nil && len(sample.Rows) > 0 {
			rows := sample.Rows
			if len(rows) > s.sampleRows {
				rows = rows[:s.sampleRows]
			}
			table.SampleRows = rows
		}
	}

	return table, nil
}

func toColumnDescriptor(col datasource.ColumnMetadata) models.ColumnDescriptor {
	role := models.KeyRoleNone
	switch {
	case col.IsPrimaryKey:
		role = models.KeyRolePrimary
	case col.IsUnique, col.IsForeignKey:
		role = models.KeyRoleOther
	}
	return models.ColumnDescriptor{
		Name:     col.ColumnName,
		DataType: col.DataType,
		KeyRole:  role,
		Nullable: col.IsNullable,
	}
}
