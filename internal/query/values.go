package query

import (
	"fmt"
	"time"
)

// Kind is the SQL type class of a bound value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "null"
	}
}

// KindOf classifies v for binding. Values are never rendered into statement
// text; anything that is not a scalar is rejected.
func KindOf(v any) (Kind, error) {
	switch t := v.(type) {
	case nil:
		return KindNull, nil
	case string, []byte:
		return KindString, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return KindNumber, nil
	case bool:
		return KindBool, nil
	case time.Time:
		return KindTime, nil
	case *time.Time:
		if t == nil {
			return KindNull, nil
		}
		return KindTime, nil
	case *string:
		if t == nil {
			return KindNull, nil
		}
		return KindString, nil
	default:
		return KindNull, fmt.Errorf("%w: unsupported value type %T", ErrMalformed, v)
	}
}

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05.000000"
)

// Date renders t as a date-only column value.
func Date(t time.Time) string { return t.UTC().Format(DateLayout) }

// DateTime renders t as a UTC timestamp column value with microseconds.
func DateTime(t time.Time) string { return t.UTC().Format(DateTimeLayout) }
