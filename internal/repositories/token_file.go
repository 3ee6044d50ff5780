package repositories

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
)

// TokenFile stores a credential set as TOML at a fixed path.
type TokenFile struct {
	path string
}

// NewTokenFile creates a [TokenFile] at path.
func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

// Path returns the location of the token file.
func (f *TokenFile) Path() string { return f.path }

// Load reads the stored set, or returns [shared.ErrNotAuthenticated] when the file does not exist.
func (f *TokenFile) Load() (models.CredentialSet, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.CredentialSet{}, fmt.Errorf("%w: no token file at %s", shared.ErrNotAuthenticated, f.path)
	}
	if err != nil {
		return models.CredentialSet{}, fmt.Errorf("failed to read token file: %w", err)
	}

	var c models.CredentialSet
	if err := toml.Unmarshal(data, &c); err != nil {
		return models.CredentialSet{}, fmt.Errorf("failed to parse token file: %w", err)
	}
	return c, nil
}

// Save replaces the file contents with c. The file is written to a temporary sibling and
// renamed, so a crash leaves either the old or the new set on disk, never a mix.
func (f *TokenFile) Save(c models.CredentialSet) error {
	if c.AccessToken == "" {
		return fmt.Errorf("%w: access token is required", shared.ErrInvalidArgument)
	}

	var buf bytes.Buffer
	buf.WriteString("# Managed by stx. Rewritten on every token refresh.\n")
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode token file: %w", err)
	}

	if err := shared.WriteFileAtomic(f.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}
