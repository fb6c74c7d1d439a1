// Package credentials resolves venue API credentials from environment
// variables, an OS keyring, and legacy plaintext files, in that priority
// order, mirroring the trainer/thinker/trader config loader's
// read-with-fallback shape.
package credentials

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	keyringService   = "powertrader"
	legacyKeyFile    = "b_key.txt"
	legacySecretFile = "b_secret.txt"

	envAPIKey    = "BINANCE_API_KEY"
	envAPISecret = "BINANCE_API_SECRET"
)

// VenueCredentials holds a resolved API key pair. IsValid must be checked
// before use: a failed resolution returns an instance with both fields empty
// rather than an error, matching the trading venue's "refuse to start"
// contract at the call site instead of here.
type VenueCredentials struct {
	APIKey    string
	APISecret string
	Source    string
}

// IsValid reports whether both halves of the pair are present.
func (c VenueCredentials) IsValid() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// Keyring is the minimal OS credential-store contract. No secret broker
// binding ships in the dependency set this module draws from, so the
// concrete NullKeyring always reports "not found"; a real implementation
// (e.g. wrapping a platform keychain) can be substituted by callers that
// have one available.
type Keyring interface {
	Get(service, account string) (string, error)
}

// NullKeyring never finds anything; it exists so the resolution chain keeps
// its documented three-step shape even where no keyring backend is wired.
type NullKeyring struct{}

func (NullKeyring) Get(service, account string) (string, error) { return "", os.ErrNotExist }

// Load resolves credentials in priority order: environment variables
// (optionally populated from a ".env" file under baseDir), OS keyring, then
// legacy plaintext files "b_key.txt"/"b_secret.txt" under baseDir.
func Load(baseDir string, kr Keyring) VenueCredentials {
	_ = godotenv.Load(filepath.Join(baseDir, ".env"))

	if key, secret := strings.TrimSpace(os.Getenv(envAPIKey)), strings.TrimSpace(os.Getenv(envAPISecret)); key != "" && secret != "" {
		return VenueCredentials{APIKey: key, APISecret: secret, Source: "env"}
	}

	if kr == nil {
		kr = NullKeyring{}
	}
	if key, err := kr.Get(keyringService, "api_key"); err == nil {
		if secret, err := kr.Get(keyringService, "api_secret"); err == nil {
			key, secret = strings.TrimSpace(key), strings.TrimSpace(secret)
			if key != "" && secret != "" {
				return VenueCredentials{APIKey: key, APISecret: secret, Source: "keyring"}
			}
		}
	}

	key := readLegacyFile(filepath.Join(baseDir, legacyKeyFile))
	secret := readLegacyFile(filepath.Join(baseDir, legacySecretFile))
	if key != "" && secret != "" {
		return VenueCredentials{APIKey: key, APISecret: secret, Source: "legacy_file"}
	}

	return VenueCredentials{}
}

func readLegacyFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
