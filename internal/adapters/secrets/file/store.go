package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/bnema/token-pool-router/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	storeDirMode      = 0o700
	credentialFileMod = 0o600
	credentialExt     = ".toml"
)

type credentialFile struct {
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token,omitempty"`
	ExpiresAt    string `toml:"expires_at,omitempty"`
}

// Store keeps one TOML file per credential reference under root.
type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.CredentialStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

func (s *Store) Put(ctx context.Context, ref string, credential domain.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForRef(ref)
	if err != nil {
		return err
	}

	data, err := toml.Marshal(credentialFile{
		AccessToken:  credential.AccessToken,
		RefreshToken: credential.RefreshToken,
		ExpiresAt:    formatExpiry(credential.ExpiresAt),
	})
	if err != nil {
		return fmt.Errorf("encode credential %q: %w", ref, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), storeDirMode); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	if err := os.WriteFile(path, data, credentialFileMod); err != nil {
		return fmt.Errorf("write credential %q: %w", ref, err)
	}
	if err := os.Chmod(path, credentialFileMod); err != nil {
		return fmt.Errorf("chmod credential %q: %w", ref, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, ref string) (domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return domain.Credential{}, err
	}

	path, err := s.pathForRef(ref)
	if err != nil {
		return domain.Credential{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Credential{}, fmt.Errorf("credential %q: %w", ref, domain.ErrCredentialNotFound)
		}
		return domain.Credential{}, fmt.Errorf("read credential %q: %w", ref, err)
	}

	var decoded credentialFile
	if err := toml.Unmarshal(data, &decoded); err != nil {
		return domain.Credential{}, fmt.Errorf("decode credential %q: %w", ref, err)
	}

	expiresAt, err := parseExpiry(decoded.ExpiresAt)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("decode credential %q: %w", ref, err)
	}

	return domain.Credential{
		AccessToken:  decoded.AccessToken,
		RefreshToken: decoded.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForRef(ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete credential %q: %w", ref, err)
	}

	return nil
}

func (s *Store) pathForRef(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", errors.New("credential ref is empty")
	}

	cleaned := filepath.Clean(trimmed)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") || cleaned == "." {
		return "", fmt.Errorf("invalid credential ref %q", ref)
	}

	return filepath.Join(s.root, cleaned+credentialExt), nil
}

func formatExpiry(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func parseExpiry(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expires_at: %w", err)
	}
	return parsed, nil
}
