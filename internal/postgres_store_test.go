package internal

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/formadmin"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const faqFrom = `FROM "faq" AS "t" LEFT JOIN "users" AS "user" ON "user"."id" = "t"."user_id"`

var faqRowColumns = []string{
	"id", "question", "answer", "photo", "published", "user_id",
	"user___id", "user___name", "user___email",
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface, *formadmin.Model) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	registry := newTestRegistry(t)
	return NewPostgresStore(mock, registry, time.Second), mock, mustModel(t, registry, "faq")
}

func TestPostgresStore_Load(t *testing.T) {
	store, mock, faq := newMockStore(t)

	mock.ExpectQuery(`SELECT "t"."id", "t"."question", .+ AS "user___email" ` + regexp.QuoteMeta(faqFrom+` WHERE "t"."id" = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(faqRowColumns).
			AddRow(int64(3), "How?", "Like this", "a.png", true, int64(9), int64(9), "Ann", nil))

	entity, err := store.Load(context.Background(), faq, "3")
	require.NoError(t, err)

	assert.Equal(t, int64(3), entity.ID)
	assert.True(t, entity.Persisted())
	assert.Equal(t, "How?", entity.Values["question"])
	assert.Equal(t, int64(9), entity.Values["user_id"])
	name, ok := entity.Get("user.name")
	require.True(t, ok)
	assert.Equal(t, "Ann", name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadMissing(t *testing.T) {
	store, mock, faq := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(faqFrom)).
		WithArgs(int64(404)).
		WillReturnRows(pgxmock.NewRows(faqRowColumns))

	_, err := store.Load(context.Background(), faq, "404")
	require.Error(t, err)
	assert.True(t, formadmin.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadMalformedID(t *testing.T) {
	store, mock, faq := newMockStore(t)

	_, err := store.Load(context.Background(), faq, "abc")
	require.Error(t, err)
	assert.True(t, formadmin.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock, faq := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "faq"`)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(12)))

	total, err := store.Count(context.Background(), faq)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindWithFilterAndOrder(t *testing.T) {
	store, mock, faq := newMockStore(t)

	filter := &formadmin.CompositeCondition{
		Logic: formadmin.LogicOr,
		Conditions: []formadmin.Condition{
			&formadmin.ContainsCondition{Field: "question", Value: "50%"},
			&formadmin.ContainsCondition{Field: "user.name", Value: "50%"},
		},
	}
	where := `WHERE (CAST("t"."question" AS TEXT) ILIKE $1 ESCAPE '\' OR CAST("user"."name" AS TEXT) ILIKE $2 ESCAPE '\')`

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) ` + faqFrom + ` ` + where)).
		WithArgs(`%50\%%`, `%50\%%`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta(where + ` ORDER BY "user"."name" DESC, "t"."id" ASC LIMIT $3 OFFSET $4`)).
		WithArgs(`%50\%%`, `%50\%%`, 5, 5).
		WillReturnRows(pgxmock.NewRows(faqRowColumns).
			AddRow(int64(8), "Is 50% off?", nil, nil, false, nil, nil, nil, nil))

	result, err := store.Find(context.Background(), faq, formadmin.ListQuery{
		Page:     2,
		PageSize: 5,
		Order:    &formadmin.OrderSpec{Field: "user.name", Direction: formadmin.SortOrderDesc},
		Filter:   filter,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.Filtered)
	require.Len(t, result.Records, 1)
	assert.Equal(t, int64(8), result.Records[0].ID)
	_, ok := result.Records[0].Get("user.name")
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindWithoutOrderUsesIdentifier(t *testing.T) {
	store, mock, faq := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) ` + faqFrom)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(regexp.QuoteMeta(faqFrom + ` ORDER BY "t"."id" ASC LIMIT $1 OFFSET $2`)).
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows(faqRowColumns))

	result, err := store.Find(context.Background(), faq, formadmin.ListQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindRejectsUnknownOrderField(t *testing.T) {
	store, _, faq := newMockStore(t)

	_, err := store.Find(context.Background(), faq, formadmin.ListQuery{
		Page: 1, PageSize: 10,
		Order: &formadmin.OrderSpec{Field: "nope", Direction: formadmin.SortOrderAsc},
	})
	require.Error(t, err)
}

func TestPostgresStore_SaveInsert(t *testing.T) {
	store, mock, faq := newMockStore(t)

	entity := formadmin.NewEntity(faq)
	entity.Set("question", "Why?")
	entity.Set("published", true)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "faq" ("question", "published") VALUES ($1, $2) RETURNING "id"`)).
		WithArgs("Why?", true).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	require.NoError(t, store.Save(context.Background(), faq, entity))
	assert.Equal(t, int64(7), entity.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveUpdate(t *testing.T) {
	store, mock, faq := newMockStore(t)

	entity := formadmin.NewEntity(faq)
	entity.ID = int64(7)
	entity.Set("question", "Why not?")
	entity.Set("photo", "")

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "faq" SET "question" = $1, "photo" = $2 WHERE "id" = $3`)).
		WithArgs("Why not?", "", int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.Save(context.Background(), faq, entity))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveUpdateMissingRow(t *testing.T) {
	store, mock, faq := newMockStore(t)

	entity := formadmin.NewEntity(faq)
	entity.ID = int64(70)
	entity.Set("question", "Gone?")

	mock.ExpectExec(`UPDATE "faq"`).
		WithArgs("Gone?", int64(70)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Save(context.Background(), faq, entity)
	require.Error(t, err)
	assert.True(t, formadmin.IsNotFound(err))
}

func TestPostgresStore_SaveRejectsInvalidRecord(t *testing.T) {
	store, mock, faq := newMockStore(t)

	entity := formadmin.NewEntity(faq)
	entity.Set("answer", "no question")

	err := store.Save(context.Background(), faq, entity)
	require.Error(t, err)
	assert.True(t, formadmin.IsValidation(err))
	assert.False(t, entity.Persisted())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveMapsConstraintViolations(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{name: "unique", code: pgerrcode.UniqueViolation, want: formadmin.ErrCodeConstraintViolation},
		{name: "foreign key", code: pgerrcode.ForeignKeyViolation, want: formadmin.ErrCodeConstraintViolation},
		{name: "bad data", code: pgerrcode.InvalidTextRepresentation, want: formadmin.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock, faq := newMockStore(t)

			entity := formadmin.NewEntity(faq)
			entity.Set("question", "Dup?")

			mock.ExpectQuery(`INSERT INTO "faq"`).
				WithArgs("Dup?").
				WillReturnError(&pgconn.PgError{Code: tt.code, ConstraintName: "faq_question_key", Message: "rejected"})

			err := store.Save(context.Background(), faq, entity)
			require.Error(t, err)
			assert.True(t, formadmin.IsValidation(err))

			var adminErr *formadmin.AdminError
			require.ErrorAs(t, err, &adminErr)
			assert.Equal(t, tt.want, adminErr.Code)
		})
	}
}

func TestPostgresStore_SaveQueryFailureIsNotValidation(t *testing.T) {
	store, mock, faq := newMockStore(t)

	entity := formadmin.NewEntity(faq)
	entity.Set("question", "Down?")

	mock.ExpectQuery(`INSERT INTO "faq"`).
		WithArgs("Down?").
		WillReturnError(assert.AnError)

	err := store.Save(context.Background(), faq, entity)
	require.Error(t, err)
	assert.False(t, formadmin.IsValidation(err))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock, faq := newMockStore(t)

	entity := formadmin.NewEntity(faq)
	entity.ID = int64(3)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "faq" WHERE "id" = $1`)).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, store.Delete(context.Background(), faq, entity))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteUnpersisted(t *testing.T) {
	store, _, faq := newMockStore(t)

	err := store.Delete(context.Background(), faq, formadmin.NewEntity(faq))
	assert.True(t, formadmin.IsNotFound(err))
}

func TestPostgresStore_SaveLoadedUUIDRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	registry, err := NewModelRegistry(formadmin.ModelDefinition{
		Name:    "tag",
		Columns: []string{"id", "label"},
		Schema: map[string]any{
			"type":     "object",
			"required": []any{"label"},
			"properties": map[string]any{
				"id":    map[string]any{"type": "string", "format": "uuid"},
				"label": map[string]any{"type": "string"},
			},
		},
	})
	require.NoError(t, err)
	tag := mustModel(t, registry, "tag")
	store := NewPostgresStore(mock, registry, time.Second)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "tag" AS "t" WHERE "t"."id" = $1`)).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "label"}).AddRow([16]byte(id), "go"))

	entity, err := store.Load(context.Background(), tag, id.String())
	require.NoError(t, err)
	assert.Equal(t, id, entity.ID)

	entity.Set("label", "golang")
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "tag" SET "label" = $1 WHERE "id" = $2`)).
		WithArgs("golang", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.Save(context.Background(), tag, entity))
	require.NoError(t, mock.ExpectationsWereMet())
}
