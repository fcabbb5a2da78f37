package projection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdhq/flowd/pkg/projection"
)

func TestProject(t *testing.T) {
	context := map[string]any{
		"assets": map[string]any{
			"contract": map[string]any{"amount": 42.0, "parties": []any{"a", "b"}},
		},
	}

	t.Run("Object Result", func(t *testing.T) {
		result, err := projection.Project("assets.contract", context)
		require.NoError(t, err)
		assert.Equal(t, context["assets"].(map[string]any)["contract"], result)
	})

	t.Run("Scalar Result Wrapped", func(t *testing.T) {
		result, err := projection.ProjectObject("assets.contract.amount", context)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"value": 42.0}, result)
	})

	t.Run("Missing Path Yields Empty Object", func(t *testing.T) {
		result, err := projection.ProjectObject("assets.missing", context)
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("Reshape", func(t *testing.T) {
		result, err := projection.Project("{total: assets.contract.amount}", context)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"total": 42.0}, result)
	})

	t.Run("Syntax Error", func(t *testing.T) {
		_, err := projection.Project("assets.[", context)
		var syntaxErr *projection.SyntaxError
		require.ErrorAs(t, err, &syntaxErr)
		assert.Equal(t, "assets.[", syntaxErr.Expression)
	})
}

func TestCompile(t *testing.T) {
	assert.NoError(t, projection.Compile("a.b.c"))

	err := projection.Compile("][")
	var syntaxErr *projection.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"empty string", "", false},
		{"string", "x", true},
		{"zero", 0.0, false},
		{"number", 1.5, true},
		{"empty array", []any{}, false},
		{"array", []any{1}, true},
		{"empty object", map[string]any{}, false},
		{"object", map[string]any{"a": 1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, projection.Truthy(tc.value))
		})
	}
}
