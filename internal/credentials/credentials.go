// Package credentials looks up the account used for password grants.
//
// The user and password come from COPERNICUS_USER and COPERNICUS_PASS, which
// may be loaded from a .env file. A missing password falls back to the OS
// keyring entry stored for the user.
package credentials

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"

	"github.com/robert-malhotra/copernicus-cli/pkg/auth"
)

const (
	EnvUser = "COPERNICUS_USER"
	EnvPass = "COPERNICUS_PASS"

	// Service is the keyring service name passwords are stored under.
	Service = "copernicus-cli"

	// PlaceholderUser is the user name shipped in the example .env file.
	PlaceholderUser = "FAKE_USER"
)

// ErrPlaceholder is returned when the example user name was left in place.
var ErrPlaceholder = errors.New("credentials: " + EnvUser + " is still set to the placeholder " + PlaceholderUser)

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
	lookupEnv     = os.LookupEnv
)

// LoadEnvFile loads variables from path without overriding ones already set.
// An empty path loads ./.env if it exists.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		return godotenv.Load()
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Lookup returns the configured credentials. Absent values stay empty so the
// caller can decide whether a password grant is needed at all.
func Lookup() (auth.Credentials, error) {
	var c auth.Credentials
	c.User, _ = lookupEnv(EnvUser)
	c.Pass, _ = lookupEnv(EnvPass)

	if c.User == PlaceholderUser {
		return c, ErrPlaceholder
	}
	if c.User != "" && c.Pass == "" {
		pass, err := keyringGet(Service, c.User)
		switch {
		case err == nil:
			c.Pass = pass
		case errors.Is(err, keyring.ErrNotFound):
		default:
			return c, fmt.Errorf("read keyring: %w", err)
		}
	}
	return c, nil
}

// StorePassword saves pass in the keyring for user.
func StorePassword(user, pass string) error {
	if user == "" {
		return errors.New("credentials: user is required")
	}
	if user == PlaceholderUser {
		return ErrPlaceholder
	}
	if err := keyringSet(Service, user, pass); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}

// DeletePassword removes the stored password for user. A missing entry is not
// an error.
func DeletePassword(user string) error {
	if err := keyringDelete(Service, user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete keyring entry: %w", err)
	}
	return nil
}
