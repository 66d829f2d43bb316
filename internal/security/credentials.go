// Package security stores the engine password in the OS keyring so it never
// has to sit in the config file.
package security

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "lakecat"

// StorePassword saves the engine password for a user in the system keyring.
func StorePassword(user, password string) error {
	if user == "" {
		return fmt.Errorf("user must not be empty")
	}
	if err := keyring.Set(keyringService, user, password); err != nil {
		return fmt.Errorf("failed to store password in keyring: %w", err)
	}
	return nil
}

// GetPassword retrieves the stored engine password for a user. A missing
// entry returns an empty string, not an error.
func GetPassword(user string) (string, error) {
	if user == "" {
		return "", nil
	}
	secret, err := keyring.Get(keyringService, user)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read password from keyring: %w", err)
	}
	return secret, nil
}

// DeletePassword removes the stored engine password for a user.
func DeletePassword(user string) error {
	if err := keyring.Delete(keyringService, user); err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("failed to delete password from keyring: %w", err)
	}
	return nil
}
