package query

import (
	"encoding/json"
	"fmt"
)

// Association joins a node to its preceding sibling. NOT is only valid on groups
// and negates the group's own rendered clause.
type Association string

const (
	AND Association = "AND"
	OR  Association = "OR"
	NOT Association = "NOT"
)

// Operator is a comparison operator of a leaf condition.
type Operator string

const (
	Eq    Operator = "="
	Ne    Operator = "<>"
	Lt    Operator = "<"
	Le    Operator = "<="
	Gt    Operator = ">"
	Ge    Operator = ">="
	Like  Operator = "LIKE"
	Is    Operator = "IS"
	IsNot Operator = "IS NOT"
)

func (op Operator) valid() bool {
	switch op {
	case Eq, Ne, Lt, Le, Gt, Ge, Like, Is, IsNot:
		return true
	}
	return false
}

type operandKind int

const (
	operandNull operandKind = iota
	operandField
	operandValue
)

// Operand is the right-hand side of a condition: a field reference, a literal
// value (always bound as a parameter) or NULL. The zero Operand is NULL.
type Operand struct {
	kind  operandKind
	field string
	value any
}

// Field references another column, e.g. Field("RESERVATIONS.roomId").
func Field(name string) Operand { return Operand{kind: operandField, field: name} }

// Value wraps a literal. A nil literal is NULL.
func Value(v any) Operand {
	if v == nil {
		return Operand{kind: operandNull}
	}
	return Operand{kind: operandValue, value: v}
}

// Null is the SQL NULL literal.
func Null() Operand { return Operand{kind: operandNull} }

func (o Operand) IsNull() bool  { return o.kind == operandNull }
func (o Operand) IsField() bool { return o.kind == operandField }

// MarshalJSON encodes a field reference as {"field": name}, NULL as null and a
// literal as itself.
func (o Operand) MarshalJSON() ([]byte, error) {
	switch o.kind {
	case operandField:
		return json.Marshal(map[string]string{"field": o.field})
	case operandValue:
		return json.Marshal(o.value)
	default:
		return []byte("null"), nil
	}
}

func (o *Operand) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*o = Null()
	case map[string]any:
		name, ok := v["field"].(string)
		if !ok || len(v) != 1 {
			return fmt.Errorf("%w: operand object must be {\"field\": name}", ErrMalformed)
		}
		*o = Field(name)
	case []any:
		return fmt.Errorf("%w: list operands are not supported", ErrMalformed)
	default:
		*o = Value(v)
	}
	return nil
}

// Condition is a single comparison between a field and an operand.
type Condition struct {
	Association Association `json:"association,omitempty"`
	Operator    Operator    `json:"operator"`
	Left        string      `json:"left"`
	Right       Operand     `json:"right"`
}

// Where builds an AND-associated condition.
func Where(left string, op Operator, right Operand) Condition {
	return Condition{Association: AND, Operator: op, Left: left, Right: right}
}

// Or returns a copy of c joined to its preceding sibling with OR.
func (c Condition) Or() Condition {
	c.Association = OR
	return c
}

// Group is a boolean combination of either leaf conditions or nested groups,
// never both.
type Group struct {
	Association Association `json:"association,omitempty"`
	Conditions  []Condition `json:"conditions,omitempty"`
	Groups      []Group     `json:"groups,omitempty"`
}

// All groups leaf conditions.
func All(conds ...Condition) Group {
	return Group{Association: AND, Conditions: conds}
}

// Nest groups child groups.
func Nest(groups ...Group) Group {
	return Group{Association: AND, Groups: groups}
}

// Not negates g as a whole.
func Not(g Group) Group {
	g.Association = NOT
	return g
}

// Or returns a copy of g joined to its preceding sibling with OR.
func (g Group) Or() Group {
	g.Association = OR
	return g
}

// IsLeaf reports whether the group holds leaf conditions.
func (g Group) IsLeaf() bool { return len(g.Conditions) > 0 }
