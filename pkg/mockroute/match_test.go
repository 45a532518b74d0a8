package mockroute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchSubset(t *testing.T) {
	type storeName struct {
		Name string `json:"name"`
	}
	order := map[string]any{
		"items": []any{
			map[string]any{"menuId": 1, "description": "Veggie", "price": 0.0038},
			map[string]any{"menuId": 2, "description": "Pepperoni", "price": 0.0042},
		},
		"storeId":     "4",
		"franchiseId": 2,
	}

	tests := []struct {
		name      string
		expected  any
		actual    any
		wantPaths []string
	}{
		{
			name:     "extra keys ignored",
			expected: map[string]any{"email": "u@jwt.com"},
			actual:   map[string]any{"email": "u@jwt.com", "password": "a"},
		},
		{
			name:     "nested objects and arrays",
			expected: order,
			actual: map[string]any{
				"items": []any{
					map[string]any{"menuId": 1.0, "description": "Veggie", "price": 0.0038, "title": "x"},
					map[string]any{"menuId": 2.0, "description": "Pepperoni", "price": 0.0042},
				},
				"storeId":     "4",
				"franchiseId": 2.0,
			},
		},
		{
			name:      "missing key",
			expected:  map[string]any{"email": "u@jwt.com", "password": "a"},
			actual:    map[string]any{"email": "u@jwt.com"},
			wantPaths: []string{"password"},
		},
		{
			name:      "string is not number",
			expected:  map[string]any{"storeId": "4"},
			actual:    map[string]any{"storeId": 4},
			wantPaths: []string{"storeId"},
		},
		{
			name:      "array length must match",
			expected:  map[string]any{"admins": []any{map[string]any{"email": "n@jwt.com"}}},
			actual:    map[string]any{"admins": []any{}},
			wantPaths: []string{"admins"},
		},
		{
			name:      "array element differs",
			expected:  []any{1, 2},
			actual:    []any{1, 3},
			wantPaths: []string{"[1]"},
		},
		{
			name:      "object expected",
			expected:  map[string]any{"a": 1},
			actual:    "a",
			wantPaths: []string{""},
		},
		{
			name:     "struct values",
			expected: storeName{Name: "New Store"},
			actual:   []byte(`{"name":"New Store","extra":true}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diffs, err := MatchSubset(tt.expected, tt.actual)
			require.NoError(t, err)
			var paths []string
			for _, d := range diffs {
				paths = append(paths, d.Path)
			}
			assert.Equal(t, tt.wantPaths, paths)
		})
	}
}

func TestMatchSubsetInvalidJSON(t *testing.T) {
	_, err := MatchSubset(map[string]any{"a": 1}, []byte("{not json"))
	assert.Error(t, err)
}

func TestDifferenceString(t *testing.T) {
	d := Difference{Path: "body.email", Expected: "a@jwt.com", Actual: "b@jwt.com", Reason: "value differs"}
	assert.Equal(t, `body.email: value differs (expected "a@jwt.com", got "b@jwt.com")`, d.String())
}
