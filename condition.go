package formadmin

import (
	"fmt"
	"strings"
)

type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// ColumnResolver maps a (possibly dotted) field name to a SQL column expression.
type ColumnResolver interface {
	ColumnExpr(field string) (string, error)
}

// Condition is a node of a list filter tree.
type Condition interface {
	IsLeaf() bool
	ToSqlClauses(columns ColumnResolver, paramIndex *int) (string, []any, error)
}

// CompositeCondition joins its children with AND or OR.
type CompositeCondition struct {
	Logic      Logic       `json:"l"`
	Conditions []Condition `json:"c"`
}

func (c *CompositeCondition) IsLeaf() bool { return false }

func (c *CompositeCondition) ToSqlClauses(columns ColumnResolver, paramIndex *int) (string, []any, error) {
	if len(c.Conditions) == 0 {
		// An empty group renders nothing; the parent ignores it.
		return "", nil, nil
	}

	var sqlJoiner string
	switch c.Logic {
	case LogicAnd:
		sqlJoiner = " AND "
	case LogicOr:
		sqlJoiner = " OR "
	default:
		return "", nil, fmt.Errorf("unknown logic: %s", c.Logic)
	}

	var childClauses []string
	var allArgs []any

	for _, cond := range c.Conditions {
		sql, args, err := cond.ToSqlClauses(columns, paramIndex)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		childClauses = append(childClauses, sql)
		allArgs = append(allArgs, args...)
	}

	if len(childClauses) == 0 {
		return "", nil, nil
	}

	return "(" + strings.Join(childClauses, sqlJoiner) + ")", allArgs, nil
}

// ContainsCondition is a case-insensitive substring match on one field.
type ContainsCondition struct {
	Field string `json:"a"`
	Value string `json:"v"`
}

func (cc *ContainsCondition) IsLeaf() bool { return true }

// ToSqlClauses renders the match against the text form of the column so that
// numeric columns can be searched the same way as text ones.
func (cc *ContainsCondition) ToSqlClauses(columns ColumnResolver, paramIndex *int) (string, []any, error) {
	expr, err := columns.ColumnExpr(cc.Field)
	if err != nil {
		return "", nil, err
	}

	*paramIndex++
	sql := fmt.Sprintf(`CAST(%s AS TEXT) ILIKE $%d ESCAPE '\'`, expr, *paramIndex)
	return sql, []any{"%" + escapeLikePattern(cc.Value) + "%"}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLikePattern(s string) string {
	return likeEscaper.Replace(s)
}
