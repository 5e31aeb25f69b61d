package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformed marks a condition tree or request that cannot be compiled.
var ErrMalformed = errors.New("malformed query")

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Compile renders g as a parenthesized SQL predicate. Literal operands become
// "?" placeholders and their values are returned in args, in placeholder order.
//
// Within a group the first child is rendered alone and every following child
// is prefixed with its own association keyword. A group associated with NOT
// renders as (NOT (...)); a NOT child joins its preceding sibling with AND.
func Compile(g Group) (string, []any, error) {
	c := &compiler{}
	if err := c.group(g, "root"); err != nil {
		return "", nil, err
	}
	return c.sb.String(), c.args, nil
}

type compiler struct {
	sb   strings.Builder
	args []any
}

func (c *compiler) group(g Group, path string) error {
	switch {
	case len(g.Conditions) == 0 && len(g.Groups) == 0:
		return fmt.Errorf("%w: group %s has no children", ErrMalformed, path)
	case len(g.Conditions) > 0 && len(g.Groups) > 0:
		return fmt.Errorf("%w: group %s mixes conditions and groups", ErrMalformed, path)
	}
	switch g.Association {
	case "", AND, OR, NOT:
	default:
		return fmt.Errorf("%w: group %s has unknown association %q", ErrMalformed, path, g.Association)
	}

	negated := g.Association == NOT
	if negated {
		c.sb.WriteString("(NOT ")
	}
	c.sb.WriteByte('(')

	if g.IsLeaf() {
		for i, cond := range g.Conditions {
			if i > 0 {
				conn, err := leafConnector(cond.Association)
				if err != nil {
					return fmt.Errorf("%s[%d]: %w", path, i, err)
				}
				c.sb.WriteString(" " + conn + " ")
			} else if cond.Association == NOT {
				return fmt.Errorf("%w: %s[0]: NOT is only valid on groups", ErrMalformed, path)
			}
			if err := c.condition(cond); err != nil {
				return fmt.Errorf("%s[%d]: %w", path, i, err)
			}
		}
	} else {
		for i, child := range g.Groups {
			if i > 0 {
				c.sb.WriteString(" " + groupConnector(child.Association) + " ")
			}
			if err := c.group(child, fmt.Sprintf("%s.%d", path, i)); err != nil {
				return err
			}
		}
	}

	c.sb.WriteByte(')')
	if negated {
		c.sb.WriteByte(')')
	}
	return nil
}

func leafConnector(a Association) (string, error) {
	switch a {
	case "", AND:
		return string(AND), nil
	case OR:
		return string(OR), nil
	case NOT:
		return "", fmt.Errorf("%w: NOT is only valid on groups", ErrMalformed)
	default:
		return "", fmt.Errorf("%w: unknown association %q", ErrMalformed, a)
	}
}

// groupConnector maps a child group's association to the keyword joining it to
// its preceding sibling; the negation itself is rendered by the child.
func groupConnector(a Association) string {
	if a == OR {
		return string(OR)
	}
	return string(AND)
}

func (c *compiler) condition(cond Condition) error {
	if !cond.Operator.valid() {
		return fmt.Errorf("%w: unknown operator %q", ErrMalformed, cond.Operator)
	}
	if err := checkIdentifier(cond.Left); err != nil {
		return err
	}

	nullCheck := cond.Operator == Is || cond.Operator == IsNot
	switch {
	case nullCheck && !cond.Right.IsNull():
		return fmt.Errorf("%w: %s %s requires a NULL right side", ErrMalformed, cond.Left, cond.Operator)
	case !nullCheck && cond.Right.IsNull():
		return fmt.Errorf("%w: %s %s NULL is never true, use IS or IS NOT", ErrMalformed, cond.Left, cond.Operator)
	}

	c.sb.WriteString(cond.Left)
	c.sb.WriteString(" " + string(cond.Operator) + " ")

	switch cond.Right.kind {
	case operandField:
		if err := checkIdentifier(cond.Right.field); err != nil {
			return err
		}
		c.sb.WriteString(cond.Right.field)
	case operandValue:
		if _, err := KindOf(cond.Right.value); err != nil {
			return fmt.Errorf("%s: %w", cond.Left, err)
		}
		c.sb.WriteByte('?')
		c.args = append(c.args, cond.Right.value)
	default:
		c.sb.WriteString("NULL")
	}
	return nil
}

func checkIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("%w: invalid identifier %q", ErrMalformed, name)
	}
	return nil
}
