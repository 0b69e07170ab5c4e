package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// ServiceName is the keyring service name for duologin
	ServiceName = "duologin"
)

// ErrPasswordNotFound is returned when no password is stored for a profile
var ErrPasswordNotFound = errors.New("password not found in keyring")

// SavePassword stores a password for the given profile
func SavePassword(profile, password string) error {
	if err := keyring.Set(ServiceName, profile, password); err != nil {
		return fmt.Errorf("failed to save password: %w", err)
	}
	return nil
}

// GetPassword retrieves a password for the given profile
func GetPassword(profile string) (string, error) {
	password, err := keyring.Get(ServiceName, profile)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrPasswordNotFound
		}
		return "", fmt.Errorf("failed to get password: %w", err)
	}
	return password, nil
}

// DeletePassword removes a password for the given profile
func DeletePassword(profile string) error {
	if err := keyring.Delete(ServiceName, profile); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrPasswordNotFound
		}
		return fmt.Errorf("failed to delete password: %w", err)
	}
	return nil
}

// HasPassword checks if a password exists for the given profile
func HasPassword(profile string) bool {
	_, err := GetPassword(profile)
	return err == nil
}

// IsAvailable checks if the keyring is usable on this system by writing and
// removing a probe entry.
func IsAvailable() bool {
	const probeKey = "__duologin_keyring_probe__"

	if err := keyring.Set(ServiceName, probeKey, "probe"); err != nil {
		return false
	}
	_ = keyring.Delete(ServiceName, probeKey)
	return true
}
