package sources

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/eugenenazirov/layered-config/internal/configstore"
)

// Flatten walks a decoded document depth first and emits one entry per leaf.
// Arrays are indexed by position ("Hosts:0", "Hosts:1"). Null leaves become
// empty strings; empty objects and arrays emit nothing.
func Flatten(doc map[string]any) (map[string]string, error) {
	out := make(map[string]string)
	for key, value := range doc {
		if err := flattenValue(out, key, value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func flattenValue(out map[string]string, path string, value any) error {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			if err := flattenValue(out, configstore.JoinKey(path, key), child); err != nil {
				return err
			}
		}
	case map[any]any:
		for key, child := range v {
			if err := flattenValue(out, configstore.JoinKey(path, fmt.Sprint(key)), child); err != nil {
				return err
			}
		}
	case []any:
		for i, child := range v {
			if err := flattenValue(out, configstore.JoinKey(path, strconv.Itoa(i)), child); err != nil {
				return err
			}
		}
	case []map[string]any:
		for i, child := range v {
			if err := flattenValue(out, configstore.JoinKey(path, strconv.Itoa(i)), child); err != nil {
				return err
			}
		}
	default:
		scalar, err := formatScalar(v)
		if err != nil {
			return fmt.Errorf("key %q: %w", path, err)
		}
		if _, dup := out[path]; dup {
			return fmt.Errorf("duplicate key %q", path)
		}
		out[path] = scalar
	}
	return nil
}

func formatScalar(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case json.Number:
		return v.String(), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}
