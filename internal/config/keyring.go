package config

import (
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "paycheck"

	keyringTokenItem    = "token"
	keyringPasswordItem = "password"
)

// KeyringManager handles secure credential storage in OS keychain.
// Secrets are stored per tracker host, so one machine can hold credentials
// for several trackers:
//   - macOS: Keychain Access.app → "paycheck" → "token@jira.example.com"
//   - Windows: Credential Manager → "paycheck"
//   - Linux: Secret Service (requires libsecret)
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

func account(item, host string) string {
	return item + "@" + host
}

// GetTrackerToken retrieves the API token for host
func (km *KeyringManager) GetTrackerToken(host string) (string, error) {
	return km.get(keyringTokenItem, host)
}

// SetTrackerToken stores the API token for host
func (km *KeyringManager) SetTrackerToken(host, token string) error {
	return km.set(keyringTokenItem, host, token)
}

// DeleteTrackerToken removes the API token for host
func (km *KeyringManager) DeleteTrackerToken(host string) error {
	return km.delete(keyringTokenItem, host)
}

// GetTrackerPassword retrieves the basic-auth password for host
func (km *KeyringManager) GetTrackerPassword(host string) (string, error) {
	return km.get(keyringPasswordItem, host)
}

// SetTrackerPassword stores the basic-auth password for host
func (km *KeyringManager) SetTrackerPassword(host, password string) error {
	return km.set(keyringPasswordItem, host, password)
}

// DeleteTrackerPassword removes the basic-auth password for host
func (km *KeyringManager) DeleteTrackerPassword(host string) error {
	return km.delete(keyringPasswordItem, host)
}

func (km *KeyringManager) get(item, host string) (string, error) {
	secret, err := keyring.Get(KeyringService, account(item, host))
	if err == keyring.ErrNotFound {
		// Not an error - just not set yet
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to read from keychain", "item", item, "host", host, "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	km.logger.Debug("secret retrieved from keychain", "item", item, "host", host)
	return secret, nil
}

func (km *KeyringManager) set(item, host, secret string) error {
	if host == "" {
		return fmt.Errorf("tracker hostname cannot be empty")
	}
	if secret == "" {
		return fmt.Errorf("%s cannot be empty", item)
	}

	if err := keyring.Set(KeyringService, account(item, host), secret); err != nil {
		km.logger.Error("failed to save to keychain", "item", item, "host", host, "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.Info("secret saved to keychain", "item", item, "host", host)
	return nil
}

func (km *KeyringManager) delete(item, host string) error {
	err := keyring.Delete(KeyringService, account(item, host))
	if err == keyring.ErrNotFound {
		// Already deleted, not an error
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete from keychain", "item", item, "host", host, "error", err)
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Info("secret deleted from keychain", "item", item, "host", host)
	return nil
}

// IsAvailable checks if OS keychain is available.
// Returns false on headless systems (CI) where keychain isn't available.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")

	// "not found" means the keychain answered
	if err == keyring.ErrNotFound || err == nil {
		return true
	}
	km.logger.Debug("keychain not available", "error", err)
	return false
}

// MaskSecret masks a secret for display.
// Shows first 4 chars and last 4 chars: "ATAT...x9Qz"
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", secret[:4], secret[len(secret)-4:])
}
