package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "inboxai"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/inboxai/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("inboxai-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// KeyIMAPPassword is the keyring key under which the IMAP account
// password is stored.
const KeyIMAPPassword = "imap_password"

// ResolveIMAPPassword returns the configured password when set,
// otherwise it falls back to the system keyring.
func ResolveIMAPPassword(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	password, err := Get(KeyIMAPPassword)
	if err != nil {
		return "", fmt.Errorf("IMAP password not in config and not in keyring: %w", err)
	}
	return password, nil
}
