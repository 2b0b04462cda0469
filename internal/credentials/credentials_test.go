package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/robert-malhotra/copernicus-cli/pkg/auth"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	orig := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = orig })
}

func withKeyring(t *testing.T, store map[string]string, getErr error) {
	t.Helper()
	origGet, origSet, origDelete := keyringGet, keyringSet, keyringDelete
	keyringGet = func(service, user string) (string, error) {
		assert.Equal(t, Service, service)
		if getErr != nil {
			return "", getErr
		}
		p, ok := store[user]
		if !ok {
			return "", keyring.ErrNotFound
		}
		return p, nil
	}
	keyringSet = func(service, user, pass string) error {
		store[user] = pass
		return nil
	}
	keyringDelete = func(service, user string) error {
		if _, ok := store[user]; !ok {
			return keyring.ErrNotFound
		}
		delete(store, user)
		return nil
	}
	t.Cleanup(func() { keyringGet, keyringSet, keyringDelete = origGet, origSet, origDelete })
}

func TestLookupFromEnv(t *testing.T) {
	withEnv(t, map[string]string{EnvUser: "alice", EnvPass: "secret"})
	withKeyring(t, map[string]string{"alice": "from-keyring"}, nil)

	c, err := Lookup()
	require.NoError(t, err)
	assert.Equal(t, auth.Credentials{User: "alice", Pass: "secret"}, c)
}

func TestLookupFallsBackToKeyring(t *testing.T) {
	withEnv(t, map[string]string{EnvUser: "alice"})
	withKeyring(t, map[string]string{"alice": "from-keyring"}, nil)

	c, err := Lookup()
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", c.Pass)
}

func TestLookupMissingEverywhere(t *testing.T) {
	withEnv(t, map[string]string{EnvUser: "bob"})
	withKeyring(t, map[string]string{}, nil)

	c, err := Lookup()
	require.NoError(t, err)
	assert.False(t, c.Complete())
}

func TestLookupKeyringFailure(t *testing.T) {
	withEnv(t, map[string]string{EnvUser: "bob"})
	withKeyring(t, map[string]string{}, errors.New("dbus unavailable"))

	_, err := Lookup()
	assert.ErrorContains(t, err, "dbus unavailable")
}

func TestLookupRejectsPlaceholder(t *testing.T) {
	withEnv(t, map[string]string{EnvUser: PlaceholderUser, EnvPass: "x"})

	_, err := Lookup()
	assert.ErrorIs(t, err, ErrPlaceholder)
}

func TestStoreAndDeletePassword(t *testing.T) {
	store := map[string]string{}
	withKeyring(t, store, nil)

	require.NoError(t, StorePassword("alice", "pw"))
	assert.Equal(t, "pw", store["alice"])

	require.NoError(t, DeletePassword("alice"))
	require.NoError(t, DeletePassword("alice"))
	assert.Empty(t, store)

	assert.Error(t, StorePassword("", "pw"))
	assert.ErrorIs(t, StorePassword(PlaceholderUser, "pw"), ErrPlaceholder)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("COPERNICUS_TEST_ONLY=from-file\n"), 0o600))
	t.Setenv("COPERNICUS_TEST_ONLY", "")
	os.Unsetenv("COPERNICUS_TEST_ONLY")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("COPERNICUS_TEST_ONLY"))

	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}
