// Package config persists CLI settings and the cached auth token in a YAML
// file under the user's configuration directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/copernicus-cli/pkg/auth"
)

const (
	// AppName names the configuration directory and keyring service.
	AppName = "copernicus-cli"
	// FileName is the configuration file inside the application directory.
	FileName = "config.yaml"

	currentVersion = 1
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Settings override the built-in endpoints and download behaviour. Empty
// fields keep the defaults.
type Settings struct {
	TokenURL        string        `yaml:"token_url,omitempty" validate:"omitempty,url"`
	ClientID        string        `yaml:"client_id,omitempty" validate:"omitempty,printascii"`
	SearchURL       string        `yaml:"search_url,omitempty" validate:"omitempty,url"`
	ListURL         string        `yaml:"list_url,omitempty" validate:"omitempty,contains={collection_id}"`
	CollectionsURL  string        `yaml:"collections_url,omitempty" validate:"omitempty,url"`
	DownloadTimeout time.Duration `yaml:"download_timeout,omitempty" validate:"gte=0"`
	RewriteFrom     string        `yaml:"rewrite_from,omitempty" validate:"omitempty,excludesall=./:"`
	RewriteTo       string        `yaml:"rewrite_to,omitempty" validate:"required_with=RewriteFrom,omitempty,excludesall=./:"`
	S3Endpoint      string        `yaml:"s3_endpoint,omitempty" validate:"omitempty,url"`
}

// Validate reports every invalid field.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
}

// File is the on-disk document.
type File struct {
	Version   int         `yaml:"version"`
	Settings  Settings    `yaml:"settings"`
	AuthToken *auth.Token `yaml:"auth_token,omitempty"`
}

// Store reads and writes the configuration file.
type Store struct {
	fs   afero.Fs
	path string
}

// DefaultPath returns <user config dir>/copernicus-cli/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, AppName, FileName), nil
}

// NewStore returns a Store for path on fs. A nil fs means the OS filesystem.
func NewStore(fs afero.Fs, path string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs, path: path}
}

// Path returns the file location.
func (s *Store) Path() string { return s.path }

// Load reads the file. A missing file yields an empty current-version
// document.
func (s *Store) Load() (*File, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &File{Version: currentVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", s.path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", s.path, err)
	}
	switch {
	case f.Version == 0:
		f.Version = currentVersion
	case f.Version > currentVersion:
		return nil, fmt.Errorf("config %s has version %d, newest supported is %d", s.path, f.Version, currentVersion)
	}
	if err := f.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", s.path, err)
	}
	return &f, nil
}

// Save writes f with owner-only permissions, replacing the file atomically.
func (s *Store) Save(f *File) error {
	if f == nil {
		return errors.New("config: nothing to save")
	}
	f.Version = currentVersion
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace config %s: %w", s.path, err)
	}
	return nil
}

// SaveToken stores t in the file, keeping the other settings.
func (s *Store) SaveToken(t *auth.Token) error {
	f, err := s.Load()
	if err != nil {
		return err
	}
	f.AuthToken = t
	return s.Save(f)
}
