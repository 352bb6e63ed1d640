// Package auth persists the identity-provider password in the system keyring.
package auth

import (
	"errors"

	"github.com/offtube/offtube/constant"
	"github.com/offtube/offtube/key"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const service = constant.Offtube

// ErrNoIdentity is returned when no account email or password is configured.
var ErrNoIdentity = errors.New("no identity credentials configured")

// Identity is the account used to mint session cookies.
type Identity struct {
	Email    string
	Password string
}

// SetPassword stores the password for email in the system keyring.
func SetPassword(email, password string) error {
	return keyring.Set(service, email, password)
}

// DeletePassword removes the stored password for email.
func DeletePassword(email string) error {
	return keyring.Delete(service, email)
}

// Lookup resolves the configured identity. The keyring takes precedence over the
// identity.password setting, which exists for headless deployments without a keyring.
func Lookup() (Identity, error) {
	email := viper.GetString(key.IdentityEmail)
	if email == "" {
		return Identity{}, ErrNoIdentity
	}

	password, err := keyring.Get(service, email)
	if err != nil || password == "" {
		password = viper.GetString(key.IdentityPassword)
	}

	if password == "" {
		return Identity{}, ErrNoIdentity
	}

	return Identity{Email: email, Password: password}, nil
}
