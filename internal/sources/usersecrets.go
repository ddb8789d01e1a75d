package sources

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidSecretsID is returned for user-secrets ids that could escape the
// secrets directory.
var ErrInvalidSecretsID = errors.New("invalid user secrets id")

// userConfigDir is swapped in tests.
var (
	defaultUserConfigDir = os.UserConfigDir
	userConfigDir        = defaultUserConfigDir
)

// UserSecretsPath returns the per-user secrets file for id:
// <user config dir>/usersecrets/<id>/secrets.json.
func UserSecretsPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSecretsID, id)
	}

	dir, err := userConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "usersecrets", id, "secrets.json"), nil
}

// NewUserSecrets creates an optional, sensitive JSON provider for id.
func NewUserSecrets(name string, priority int, id string) (*File, error) {
	path, err := UserSecretsPath(id)
	if err != nil {
		return nil, err
	}
	return NewFile(name, priority, path, Optional(), Sensitive())
}
