package bars

import (
	"errors"
	"fmt"
)

// ErrDataNotFound is returned when no bars intersect the requested range.
// Callers decide window-skip policy; the provider never invents data.
var ErrDataNotFound = errors.New("bars: no data in requested range")

// SchemaError reports malformed input: a required OHLCV column is missing
// or a value cannot be parsed. Schema errors are fatal and never retried.
type SchemaError struct {
	File   string
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("bars: schema error in %s: %s", e.File, e.Detail)
}

// IsSchemaError reports whether err is (or wraps) a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
