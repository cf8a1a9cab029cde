package repository

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonColumn stores V as JSON text. Postgres hands JSONB back as bytes and
// SQLite hands TEXT back as a string; Scan accepts both.
type jsonColumn[V any] struct {
	V V
}

func jsonOf[V any](v V) jsonColumn[V] {
	return jsonColumn[V]{V: v}
}

func (c jsonColumn[V]) Value() (driver.Value, error) {
	b, err := json.Marshal(c.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *jsonColumn[V]) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		var zero V
		c.V = zero
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("json column: unsupported type %T", src)
	}
	return json.Unmarshal(b, &c.V)
}
