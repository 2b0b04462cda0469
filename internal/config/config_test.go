package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/copernicus-cli/pkg/auth"
)

const testPath = "/home/user/.config/copernicus-cli/config.yaml"

func TestLoadMissingFile(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), testPath)
	f, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, currentVersion, f.Version)
	assert.Nil(t, f.AuthToken)
}

func TestSaveAndLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, testPath)

	acquired := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	in := &File{
		Settings: Settings{
			SearchURL:       "https://catalogue.example.eu/stac/search",
			ListURL:         "https://catalogue.example.eu/stac/collections/{collection_id}/items",
			DownloadTimeout: 2 * time.Hour,
			RewriteFrom:     "catalogue",
			RewriteTo:       "download",
		},
		AuthToken: &auth.Token{
			AcquiredAt:       acquired,
			AccessToken:      "access",
			ExpiresIn:        600,
			RefreshToken:     "refresh",
			RefreshExpiresIn: 3600,
			TokenType:        "Bearer",
		},
	}
	require.NoError(t, s.Save(in))

	info, err := fs.Stat(testPath)
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())

	exists, _ := afero.Exists(fs, testPath+".tmp")
	assert.False(t, exists)

	out, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, in.Settings, out.Settings)
	require.NotNil(t, out.AuthToken)
	assert.True(t, acquired.Equal(out.AuthToken.AcquiredAt))
	assert.Equal(t, "refresh", out.AuthToken.RefreshToken)
	assert.Equal(t, int64(3600), out.AuthToken.RefreshExpiresIn)
}

func TestLoadReadsDurationStrings(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testPath, []byte("version: 1\nsettings:\n  download_timeout: 90m\n"), 0o600))

	f, err := NewStore(fs, testPath).Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, f.Settings.DownloadTimeout)
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testPath, []byte("version: 2\n"), 0o600))

	_, err := NewStore(fs, testPath).Load()
	assert.ErrorContains(t, err, "version 2")
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testPath, []byte("settings: [unterminated"), 0o600))

	_, err := NewStore(fs, testPath).Load()
	assert.Error(t, err)
}

func TestSaveTokenKeepsSettings(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, testPath)
	require.NoError(t, s.Save(&File{Settings: Settings{ClientID: "custom"}}))

	require.NoError(t, s.SaveToken(&auth.Token{AccessToken: "new"}))

	f, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "custom", f.Settings.ClientID)
	assert.Equal(t, "new", f.AuthToken.AccessToken)
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr string
	}{
		{"empty", Settings{}, ""},
		{"bad search url", Settings{SearchURL: "not a url"}, "SearchURL"},
		{"list without placeholder", Settings{ListURL: "https://x.eu/items"}, "ListURL"},
		{"negative timeout", Settings{DownloadTimeout: -time.Second}, "DownloadTimeout"},
		{"rewrite without target", Settings{RewriteFrom: "catalogue"}, "RewriteTo"},
		{"rewrite with dots", Settings{RewriteFrom: "catalogue.eu", RewriteTo: "download"}, "RewriteFrom"},
		{"rewrite pair", Settings{RewriteFrom: "catalogue", RewriteTo: "download"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
