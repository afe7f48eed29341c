package internal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/formadmin"
	"go.uber.org/zap"
)

const baseAlias = "t"

// PostgresStore keeps each model in its own table. Related records are read
// through LEFT JOINs aliased by relation name.
type PostgresStore struct {
	pool     formadmin.DB
	registry formadmin.ModelRegistry
	timeout  time.Duration
}

func NewPostgresStore(pool formadmin.DB, registry formadmin.ModelRegistry, timeout time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, registry: registry, timeout: timeout}
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// joinedRelation is a relation with its target model resolved.
type joinedRelation struct {
	formadmin.Relation
	target *formadmin.Model
}

func (s *PostgresStore) relations(model *formadmin.Model) ([]joinedRelation, error) {
	names := make([]string, 0, len(model.Relations))
	for name := range model.Relations {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]joinedRelation, 0, len(names))
	for _, name := range names {
		rel := model.Relations[name]
		target, err := s.registry.GetModel(rel.Target)
		if err != nil {
			return nil, fmt.Errorf("relation %s of %s: %w", name, model.Name, err)
		}
		out = append(out, joinedRelation{Relation: rel, target: target})
	}
	return out, nil
}

// selectFrom renders the select list and FROM clause shared by Load and Find.
func (s *PostgresStore) selectFrom(model *formadmin.Model, rels []joinedRelation) (string, string) {
	cols := make([]string, 0, len(model.Columns))
	for _, c := range model.Columns {
		cols = append(cols, qualifiedColumn(baseAlias, c.Name))
	}

	from := sanitizeIdentifier(model.Table) + " AS " + sanitizeIdentifier(baseAlias)
	for _, rel := range rels {
		for _, c := range rel.target.Columns {
			cols = append(cols, qualifiedColumn(rel.Name, c.Name)+" AS "+sanitizeIdentifier(rel.Name+formadmin.RelatedKeySeparator+c.Name))
		}
		targetKey := rel.TargetKey
		if targetKey == "" {
			targetKey = rel.target.IDField
		}
		from += fmt.Sprintf(" LEFT JOIN %s AS %s ON %s = %s",
			sanitizeIdentifier(rel.target.Table),
			sanitizeIdentifier(rel.Name),
			qualifiedColumn(rel.Name, targetKey),
			qualifiedColumn(baseAlias, rel.ForeignKey),
		)
	}

	return strings.Join(cols, ", "), from
}

// columnResolver maps dotted list fields onto the aliases used by selectFrom.
type columnResolver struct {
	model *formadmin.Model
	rels  map[string]joinedRelation
}

func newColumnResolver(model *formadmin.Model, rels []joinedRelation) *columnResolver {
	r := &columnResolver{model: model, rels: make(map[string]joinedRelation, len(rels))}
	for _, rel := range rels {
		r.rels[rel.Name] = rel
	}
	return r
}

func (r *columnResolver) ColumnExpr(field string) (string, error) {
	if relation, property, ok := strings.Cut(field, "."); ok {
		rel, found := r.rels[relation]
		if !found {
			return "", fmt.Errorf("unknown relation %q on %s", relation, r.model.Name)
		}
		if _, found := rel.target.Column(property); !found {
			return "", fmt.Errorf("unknown column %q on %s", property, rel.target.Name)
		}
		return qualifiedColumn(relation, property), nil
	}
	if _, ok := r.model.Column(field); !ok {
		return "", fmt.Errorf("unknown column %q on %s", field, r.model.Name)
	}
	return qualifiedColumn(baseAlias, field), nil
}

func (s *PostgresStore) Load(ctx context.Context, model *formadmin.Model, id string) (*formadmin.Entity, error) {
	key, err := model.ParseID(id)
	if err != nil {
		return nil, formadmin.NewRecordNotFoundError(model.Name, id).WithCause(err)
	}
	rels, err := s.relations(model)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cols, from := s.selectFrom(model, rels)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", cols, from, qualifiedColumn(baseAlias, model.IDField))

	rows, err := s.pool.Query(ctx, query, key)
	if err != nil {
		return nil, formadmin.NewQueryError(model.Name, "failed to load record", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, formadmin.NewQueryError(model.Name, "failed to read record", err)
	}
	if len(records) == 0 {
		return nil, formadmin.NewRecordNotFoundError(model.Name, id)
	}
	return entityFromRow(model, rels, records[0]), nil
}

func (s *PostgresStore) Count(ctx context.Context, model *formadmin.Model) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var total int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", sanitizeIdentifier(model.Table))
	if err := s.pool.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, formadmin.NewQueryError(model.Name, "failed to count records", err)
	}
	return total, nil
}

func (s *PostgresStore) Find(ctx context.Context, model *formadmin.Model, q formadmin.ListQuery) (*formadmin.ListResult, error) {
	rels, err := s.relations(model)
	if err != nil {
		return nil, err
	}
	resolver := newColumnResolver(model, rels)
	cols, from := s.selectFrom(model, rels)

	paramIndex := 0
	where := ""
	var args []any
	if q.Filter != nil {
		clause, filterArgs, err := q.Filter.ToSqlClauses(resolver, &paramIndex)
		if err != nil {
			return nil, formadmin.NewQueryError(model.Name, "invalid filter", err)
		}
		if clause != "" {
			where = " WHERE " + clause
			args = filterArgs
		}
	}

	idExpr := qualifiedColumn(baseAlias, model.IDField)
	orderBy := idExpr + " ASC"
	if q.Order != nil {
		expr, err := resolver.ColumnExpr(q.Order.Field)
		if err != nil {
			return nil, formadmin.NewQueryError(model.Name, "invalid order", err)
		}
		dir := "ASC"
		if q.Order.Direction == formadmin.SortOrderDesc {
			dir = "DESC"
		}
		orderBy = expr + " " + dir
		if expr != idExpr {
			orderBy += ", " + idExpr + " ASC"
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var filtered int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", from, where)
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&filtered); err != nil {
		return nil, formadmin.NewQueryError(model.Name, "failed to count filtered records", err)
	}

	pageSQL := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		cols, from, where, orderBy, paramIndex+1, paramIndex+2)
	pageArgs := append(append([]any{}, args...), q.PageSize, q.Offset())

	rows, err := s.pool.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, formadmin.NewQueryError(model.Name, "failed to query records", err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, formadmin.NewQueryError(model.Name, "failed to read records", err)
	}

	result := &formadmin.ListResult{Records: make([]*formadmin.Entity, 0, len(maps)), Filtered: filtered}
	for _, row := range maps {
		result.Records = append(result.Records, entityFromRow(model, rels, row))
	}
	return result, nil
}

// Save validates the entity against the model schema, then inserts or updates it.
func (s *PostgresStore) Save(ctx context.Context, model *formadmin.Model, entity *formadmin.Entity) error {
	if err := model.Validate(entity); err != nil {
		return err
	}

	var names []string
	var args []any
	for _, c := range model.Columns {
		if c.Name == model.IDField {
			continue
		}
		if v, ok := entity.Values[c.Name]; ok {
			names = append(names, c.Name)
			args = append(args, v)
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	table := sanitizeIdentifier(model.Table)
	idCol := sanitizeIdentifier(model.IDField)

	if !entity.Persisted() {
		var query string
		if len(names) == 0 {
			query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", table, idCol)
		} else {
			quoted := make([]string, len(names))
			placeholders := make([]string, len(names))
			for i, n := range names {
				quoted[i] = sanitizeIdentifier(n)
				placeholders[i] = fmt.Sprintf("$%d", i+1)
			}
			query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
				table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "), idCol)
		}

		var id any
		if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
			return translateWriteError(model, err)
		}
		entity.ID = columnValue(model.IDColumn(), id)
		zap.S().Debugw("record inserted", "model", model.Name, "id", id)
		return nil
	}

	if len(names) == 0 {
		return nil
	}
	sets := make([]string, len(names))
	for i, n := range names {
		sets[i] = fmt.Sprintf("%s = $%d", sanitizeIdentifier(n), i+1)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d", table, strings.Join(sets, ", "), idCol, len(names)+1)

	tag, err := s.pool.Exec(ctx, query, append(args, entity.ID)...)
	if err != nil {
		return translateWriteError(model, err)
	}
	if tag.RowsAffected() == 0 {
		return formadmin.NewRecordNotFoundError(model.Name, entity.ID)
	}
	zap.S().Debugw("record updated", "model", model.Name, "id", entity.ID, "columns", names)
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, model *formadmin.Model, entity *formadmin.Entity) error {
	if !entity.Persisted() {
		return formadmin.NewRecordNotFoundError(model.Name, nil)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", sanitizeIdentifier(model.Table), sanitizeIdentifier(model.IDField))
	tag, err := s.pool.Exec(ctx, query, entity.ID)
	if err != nil {
		return translateWriteError(model, err)
	}
	if tag.RowsAffected() == 0 {
		return formadmin.NewRecordNotFoundError(model.Name, entity.ID)
	}
	return nil
}

// translateWriteError turns constraint and bad-data errors into validation
// failures so the form can be shown again.
func translateWriteError(model *formadmin.Model, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
			return formadmin.NewConstraintViolationError(model.Name, pgErr.ConstraintName, err).WithField(pgErr.ColumnName)
		case pgerrcode.IsDataException(pgErr.Code):
			return formadmin.NewValidationError(model.Name, pgErr.Message).WithCause(err).WithField(pgErr.ColumnName)
		}
	}
	return formadmin.NewQueryError(model.Name, "failed to write record", err)
}

// columnValue turns the [16]byte pgx decodes for uuid columns into a uuid.UUID.
func columnValue(c formadmin.Column, v any) any {
	if b, ok := v.([16]byte); ok && c.Type == formadmin.ValueTypeUUID {
		return uuid.UUID(b)
	}
	return v
}

func entityFromRow(model *formadmin.Model, rels []joinedRelation, row map[string]any) *formadmin.Entity {
	e := formadmin.NewEntity(model)
	for _, c := range model.Columns {
		v := columnValue(c, row[c.Name])
		if c.Name == model.IDField {
			e.ID = v
			continue
		}
		e.Values[c.Name] = v
	}
	for _, rel := range rels {
		related := make(map[string]any, len(rel.target.Columns))
		for _, c := range rel.target.Columns {
			related[c.Name] = columnValue(c, row[rel.Name+formadmin.RelatedKeySeparator+c.Name])
		}
		e.Related[rel.Name] = related
	}
	return e
}
