package handlers

import (
	"context"
	"sync"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

type mockAnswerer struct {
	mu        sync.Mutex
	questions []string
	envelope  *models.ResponseEnvelope
}

func (m *mockAnswerer) Answer(ctx context.Context, question string) *models.ResponseEnvelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, question)
	if m.envelope != nil {
		return m.envelope
	}
	return &models.ResponseEnvelope{NaturalQuery: question}
}

type mockSchemaService struct {
	snapshot     *models.SchemaSnapshot
	err          error
	refreshCalls int
}

func (m *mockSchemaService) GetSchema(ctx context.Context) (*models.SchemaSnapshot, error) {
	return m.snapshot, m.err
}

func (m *mockSchemaService) GetSchemaText(ctx context.Context) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.snapshot.Render(), nil
}

func (m *mockSchemaService) Refresh(ctx context.Context) (*models.SchemaSnapshot, error) {
	m.refreshCalls++
	return m.snapshot, m.err
}

func (m *mockSchemaService) Invalidate() {}

type mockPinger struct {
	err error
}

func (m *mockPinger) TestConnection(ctx context.Context) error {
	return m.err
}
