package factory

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/lychee-technology/formadmin"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *formadmin.Config {
	config := formadmin.DefaultConfig()
	config.Admin.ModelDirectory = filepath.Join("..", "models")
	config.Admin.WebRoot = os.TempDir()
	return config
}

func TestNewAdminWithConfig_LoadsModels(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	admin, err := NewAdminWithConfig(context.Background(), testConfig(), mock, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"faq", "user"}, admin.Models())

	ctrl, err := admin.Controller("FAQ")
	require.NoError(t, err)
	assert.Equal(t, "faq", ctrl.Model().Name)
	assert.Equal(t, "/admin/faq", ctrl.ListPath())

	_, err = admin.Controller("missing")
	require.Error(t, err)
	assert.True(t, formadmin.IsNotFound(err))
}

func TestNewAdminWithConfig_ListThroughStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	admin, err := NewAdminWithConfig(context.Background(), testConfig(), mock, nil)
	require.NoError(t, err)
	ctrl, err := admin.Controller("user")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "users"$`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "users" AS "t"`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`ORDER BY "t"."id" ASC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email"}).AddRow(int64(1), "Ann", "ann@example.com"))

	resp, err := ctrl.List(context.Background(), &formadmin.Request{
		Method:      http.MethodGet,
		Query:       url.Values{},
		DataRequest: true,
	})
	require.NoError(t, err)

	payload := resp.Payload.(*formadmin.ListPayload)
	assert.Equal(t, int64(1), payload.RecordsTotal)
	require.Len(t, payload.Data, 1)
	assert.Equal(t, "Ann", payload.Data[0]["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewAdminWithConfig_UsesProvidedRegistry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	registry := &staticRegistry{}
	admin, err := NewAdminWithConfig(context.Background(), testConfig(), mock, registry)
	require.NoError(t, err)
	assert.Empty(t, admin.Models())
	assert.Same(t, registry, admin.Registry())
}

func TestNewAdminWithConfig_Errors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewAdminWithConfig(context.Background(), nil, mock, nil)
	require.Error(t, err)

	_, err = NewAdminWithConfig(context.Background(), testConfig(), nil, nil)
	require.Error(t, err)

	bad := testConfig()
	bad.Admin.RoutePrefix = "admin/"
	_, err = NewAdminWithConfig(context.Background(), bad, mock, nil)
	var cfgErr *formadmin.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "admin.routePrefix", cfgErr.Field)

	missing := testConfig()
	missing.Admin.ModelDirectory = filepath.Join(t.TempDir(), "none")
	_, err = NewAdminWithConfig(context.Background(), missing, mock, nil)
	require.Error(t, err)
}

func TestNewAdminWithConfig_RejectsBrokenFieldDeclarations(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.yaml"), []byte(`
name: note
schema:
  type: object
  properties:
    id: {type: integer}
    body: {type: string}
list_fields:
  - author.name
`), 0o644))

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	config := testConfig()
	config.Admin.ModelDirectory = dir
	_, err = NewAdminWithConfig(context.Background(), config, mock, nil)
	require.Error(t, err)
	assert.True(t, formadmin.IsConfiguration(err))
}

func TestAdmin_HealthCheck(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	admin, err := NewAdminWithConfig(context.Background(), testConfig(), mock, nil)
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("down"))
	results := admin.HealthCheck(context.Background(), 0)
	require.Contains(t, results, "postgres")
	assert.Error(t, results["postgres"])
	assert.NotContains(t, results, "s3")
}

type staticRegistry struct{}

func (staticRegistry) GetModel(name string) (*formadmin.Model, error) {
	return nil, formadmin.NewModelNotFoundError(name)
}

func (staticRegistry) ListModels() []string { return nil }
