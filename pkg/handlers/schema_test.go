package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func testSnapshot() *models.SchemaSnapshot {
	return &models.SchemaSnapshot{Tables: []models.TableDescriptor{
		{Name: "energy_bids_dam", Columns: []models.ColumnDescriptor{{Name: "id", DataType: "integer", KeyRole: models.KeyRolePrimary}}},
		{Name: "energy_bids_rtm", Columns: []models.ColumnDescriptor{{Name: "id", DataType: "integer", KeyRole: models.KeyRolePrimary}}},
	}}
}

func serveSchema(svc *mockSchemaService, method, path string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	NewSchemaHandler(svc, zap.NewNop()).RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestSchemaHandler_Get(t *testing.T) {
	snapshot := testSnapshot()
	rec := serveSchema(&mockSchemaService{snapshot: snapshot}, http.MethodGet, "/schema")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, snapshot.Render(), body["schema"])
	_, hasTables := body["tables"]
	assert.False(t, hasTables)
}

func TestSchemaHandler_Refresh(t *testing.T) {
	svc := &mockSchemaService{snapshot: testSnapshot()}
	rec := serveSchema(svc, http.MethodPost, "/schema/refresh")

	require.Equal(t, http.StatusOK, rec.Code)
	var body SchemaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Tables)
	assert.Equal(t, 2, *body.Tables)
	assert.Contains(t, body.Schema, "Table: energy_bids_rtm")
	assert.Equal(t, 1, svc.refreshCalls)
}

func TestSchemaHandler_Unavailable(t *testing.T) {
	err := fmt.Errorf("%w: dial postgres://reader:pw@db:5432/x: connection refused", apperrors.ErrSchemaUnavailable)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/schema"},
		{http.MethodPost, "/schema/refresh"},
	} {
		t.Run(route.path, func(t *testing.T) {
			rec := serveSchema(&mockSchemaService{err: err}, route.method, route.path)

			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "schema_unavailable", body["code"])
			assert.Contains(t, body["error"], "schema unavailable")
			assert.NotContains(t, body["error"], "pw@")
		})
	}
}

func TestSchemaHandler_PlainError(t *testing.T) {
	rec := serveSchema(&mockSchemaService{err: errors.New("boom")}, http.MethodGet, "/schema")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
