package projection

import (
	"fmt"

	"github.com/jmespath/go-jmespath"
)

// SyntaxError reports a malformed projection expression. It is raised at
// first use and should be surfaced as a configuration-time error.
type SyntaxError struct {
	Expression string
	Cause      error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid projection %q: %v", e.Expression, e.Cause)
}

func (e *SyntaxError) Unwrap() error { return e.Cause }

// Compile checks an expression without evaluating it. Useful for validating
// scenario configuration up front.
func Compile(expression string) error {
	if _, err := jmespath.Compile(expression); err != nil {
		return &SyntaxError{Expression: expression, Cause: err}
	}
	return nil
}

// Project evaluates a JMESPath expression against a context document and
// returns the raw result, which may be a scalar, array, object or nil.
func Project(expression string, context any) (any, error) {
	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, &SyntaxError{Expression: expression, Cause: err}
	}
	result, err := compiled.Search(context)
	if err != nil {
		return nil, fmt.Errorf("projection %q: %w", expression, err)
	}
	return result, nil
}

// ProjectObject evaluates an expression and coerces the result into an
// object. Scalars and arrays are wrapped under "value"; nil yields an empty
// object.
func ProjectObject(expression string, context any) (map[string]any, error) {
	result, err := Project(expression, context)
	if err != nil {
		return nil, err
	}
	return AsObject(result), nil
}

// AsObject coerces an arbitrary value into an object, wrapping non-objects
// under "value".
func AsObject(value any) map[string]any {
	switch v := value.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	default:
		return map[string]any{"value": v}
	}
}

// Truthy reports whether a projected value counts as satisfied for a
// transition or availability condition. False, nil, empty strings, empty
// collections and zero numbers are falsy, matching JMESPath semantics.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
