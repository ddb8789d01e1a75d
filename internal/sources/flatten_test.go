package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenNested(t *testing.T) {
	got, err := Flatten(map[string]any{
		"Jwt": map[string]any{
			"Key":     "abc",
			"Signing": map[any]any{"Algorithm": "HS256", 1: "one"},
		},
		"Ports": []any{8080, map[string]any{"Name": "admin"}},
		"Empty": []any{},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"Jwt:Key":               "abc",
		"Jwt:Signing:Algorithm": "HS256",
		"Jwt:Signing:1":         "one",
		"Ports:0":               "8080",
		"Ports:1:Name":          "admin",
	}, got)
}

func TestFlattenRejectsUnsupportedLeaf(t *testing.T) {
	_, err := Flatten(map[string]any{"Bad": struct{}{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Bad"`)
}

func TestFlattenRejectsCollidingPaths(t *testing.T) {
	_, err := Flatten(map[string]any{
		"Jwt:Key": "flat",
		"Jwt":     map[string]any{"Key": "nested"},
	})
	require.Error(t, err)
}
