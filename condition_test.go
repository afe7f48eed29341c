package formadmin

import (
	"fmt"
	"testing"
)

type mapResolver map[string]string

func (r mapResolver) ColumnExpr(field string) (string, error) {
	expr, ok := r[field]
	if !ok {
		return "", fmt.Errorf("unknown field %s", field)
	}
	return expr, nil
}

func TestCompositeCondition_ToSqlClauses(t *testing.T) {
	root := &CompositeCondition{
		Logic: LogicOr,
		Conditions: []Condition{
			&CompositeCondition{Logic: LogicOr, Conditions: []Condition{
				&ContainsCondition{Field: "question", Value: "foo"},
				&ContainsCondition{Field: "question", Value: "50%"},
			}},
			&CompositeCondition{Logic: LogicOr, Conditions: []Condition{
				&ContainsCondition{Field: "user.username", Value: "a_b"},
			}},
		},
	}
	columns := mapResolver{
		"question":      `"t"."question"`,
		"user.username": `"user"."username"`,
	}

	var paramCounter int
	sqlClause, args, err := root.ToSqlClauses(columns, &paramCounter)
	if err != nil {
		t.Fatalf("ToSqlClauses returned error: %v", err)
	}

	expectedSQL := `((CAST("t"."question" AS TEXT) ILIKE $1 ESCAPE '\' OR CAST("t"."question" AS TEXT) ILIKE $2 ESCAPE '\') OR (CAST("user"."username" AS TEXT) ILIKE $3 ESCAPE '\'))`
	if sqlClause != expectedSQL {
		t.Fatalf("unexpected SQL clause.\nexpected: %s\nactual:   %s", expectedSQL, sqlClause)
	}

	expectedArgs := []any{"%foo%", `%50\%%`, `%a\_b%`}
	if len(args) != len(expectedArgs) {
		t.Fatalf("expected %d args, got %d", len(expectedArgs), len(args))
	}
	for i := range expectedArgs {
		if args[i] != expectedArgs[i] {
			t.Fatalf("arg %d: expected %v, got %v", i, expectedArgs[i], args[i])
		}
	}

	if paramCounter != 3 {
		t.Fatalf("expected param counter 3, got %d", paramCounter)
	}
}

func TestCompositeCondition_EmptyChildrenRenderNothing(t *testing.T) {
	root := &CompositeCondition{
		Logic:      LogicAnd,
		Conditions: []Condition{&CompositeCondition{Logic: LogicOr}},
	}

	var paramCounter int
	sqlClause, args, err := root.ToSqlClauses(mapResolver{}, &paramCounter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sqlClause != "" || args != nil {
		t.Fatalf("expected empty clause, got %q %v", sqlClause, args)
	}
}

func TestCompositeCondition_UnknownLogic(t *testing.T) {
	root := &CompositeCondition{
		Logic:      Logic("xor"),
		Conditions: []Condition{&ContainsCondition{Field: "a", Value: "b"}},
	}
	var paramCounter int
	if _, _, err := root.ToSqlClauses(mapResolver{"a": "a"}, &paramCounter); err == nil {
		t.Fatal("expected error for unknown logic")
	}
}

func TestContainsCondition_UnknownField(t *testing.T) {
	cond := &ContainsCondition{Field: "missing", Value: "x"}
	var paramCounter int
	if _, _, err := cond.ToSqlClauses(mapResolver{}, &paramCounter); err == nil {
		t.Fatal("expected error for unknown field")
	}
	if paramCounter != 0 {
		t.Fatalf("param counter advanced on error: %d", paramCounter)
	}
}
