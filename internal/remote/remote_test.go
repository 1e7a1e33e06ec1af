package remote

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aselya-coder/PraktisiMengajar/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestFetchAllEmptyTable(t *testing.T) {
	s := openTestStore(t)

	rows, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpsertReplacesByKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, model.Row{Key: "hero", Data: []byte(`{"title":"first"}`)}))
	require.NoError(t, s.Upsert(ctx, model.Row{Key: "about", Data: []byte(`{"title":"about"}`)}))
	require.NoError(t, s.Upsert(ctx, model.Row{Key: "hero", Data: []byte(`{"title":"second"}`)}))

	rows, err := s.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2, "second upsert to the same key must not duplicate")

	assert.Equal(t, "about", rows[0].Key)
	assert.Equal(t, "hero", rows[1].Key)
	assert.JSONEq(t, `{"title":"second"}`, string(rows[1].Data))
}

func TestUpsertRejectsInvalidRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.ErrorIs(t, s.Upsert(ctx, model.Row{Key: " ", Data: []byte(`{}`)}), ErrInvalidRow)
	require.ErrorIs(t, s.Upsert(ctx, model.Row{Key: "hero", Data: []byte(`{"title":`)}), ErrInvalidRow)
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.EnsureSchema(context.Background()))
}

func TestMemoryDatabaseSharesOneConnection(t *testing.T) {
	s, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.Upsert(ctx, model.Row{Key: "cta", Data: []byte(`{}`)}))
	rows, err := s.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDefaultsRoundTripThroughTable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	defaults, err := model.Defaults()
	require.NoError(t, err)
	rows, err := defaults.Rows()
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, s.Upsert(ctx, row))
	}

	fetched, err := s.FetchAll(ctx)
	require.NoError(t, err)
	got, cov, err := model.FromRows(fetched, &model.Content{})
	require.NoError(t, err)
	assert.Empty(t, cov.Missing)
	assert.Equal(t, defaults, got)
}

func TestClosedDatabaseFails(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.FetchAll(context.Background())
	assert.Error(t, err)
	assert.Error(t, s.Upsert(context.Background(), model.Row{Key: "hero", Data: []byte(`{}`)}))
}

func TestCanceledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FetchAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestOpenValidation(t *testing.T) {
	_, err := Open("mysql", "dsn")
	assert.Error(t, err)
	_, err = Open("postgres", "")
	assert.Error(t, err)
	_, err = New(nil, "sqlite")
	assert.Error(t, err)
}

func TestPostgresQueriesUseNumberedPlaceholders(t *testing.T) {
	d := dialects["postgres"]
	assert.Contains(t, d.upsert, "$1")
	assert.Contains(t, d.upsert, "ON CONFLICT (key)")
}
