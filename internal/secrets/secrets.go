// Package secrets resolves credentials from the OS keychain, with an env
// var fallback for headless/CI setups.
package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const KeyringService = "applypilot"

// Get resolves a secret for the account, preferring the keychain and
// falling back to the named env var.
func Get(account, envVar string) (string, error) {
	if strings.TrimSpace(account) != "" {
		pw, err := keyring.Get(KeyringService, account)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("secret for %q not found (keychain service %q or env %s)", account, KeyringService, envVar)
}

func Set(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return fmt.Errorf("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("secret value is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return fmt.Errorf("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

// IMAPAccount names the keychain entry for the reply mailbox password.
func IMAPAccount(username, host string) string {
	return fmt.Sprintf("applypilot:imap:%s@%s", username, host)
}

// SMTPAccount names the keychain entry for the submission sender password.
func SMTPAccount(from, host string) string {
	return fmt.Sprintf("applypilot:smtp:%s@%s", from, host)
}
