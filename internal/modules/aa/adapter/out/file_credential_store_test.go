package out

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gatekit/internal/platform/configuration"
	apperrors "gatekit/internal/platform/errors"
)

const storeJSON = `{
  "secrets": {
    "ldap_server/bind_password": "s3cret"
  },
  "trusted_cas": {
    "corp": ["-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----"]
  }
}`

func writeStoreFile(t *testing.T, name, payload string) {
	t.Helper()
	dir := filepath.Join(os.Getenv("SCB_PLUGIN_STATE_DIRECTORY"), credentialStoreSubdir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("create store dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), []byte(payload), 0o600); err != nil {
		t.Fatalf("write store file: %v", err)
	}
}

func openStore(t *testing.T, configText string) (configuration.CredentialStore, error) {
	t.Helper()
	cfg, err := configuration.New(configText)
	if err != nil {
		t.Fatalf("configuration.New: %v", err)
	}
	return OpenFileCredentialStore(cfg)
}

func TestFileCredentialStoreResolvesSecrets(t *testing.T) {
	t.Setenv("SCB_PLUGIN_STATE_DIRECTORY", t.TempDir())
	writeStoreFile(t, "local", storeJSON)

	store, err := openStore(t, "[credential_store]\nname = local\n")
	if err != nil {
		t.Fatalf("OpenFileCredentialStore: %v", err)
	}

	secret, err := store.Secret("ldap_server", "bind_password")
	if err != nil {
		t.Fatalf("Secret: %v", err)
	}
	if secret != "s3cret" {
		t.Fatalf("secret = %q", secret)
	}

	_, err = store.Secret("ldap_server", "missing")
	if !errors.Is(err, apperrors.ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestFileCredentialStoreTrustedCAs(t *testing.T) {
	t.Setenv("SCB_PLUGIN_STATE_DIRECTORY", t.TempDir())
	writeStoreFile(t, "local", storeJSON)

	store, err := openStore(t, "[credential_store]\nname = local\n")
	if err != nil {
		t.Fatalf("OpenFileCredentialStore: %v", err)
	}

	cas, err := store.TrustedCAs("corp")
	if err != nil {
		t.Fatalf("TrustedCAs: %v", err)
	}
	if len(cas) != 1 {
		t.Fatalf("got %d CAs, want 1", len(cas))
	}

	_, err = store.TrustedCAs("unknown")
	if !errors.Is(err, apperrors.ErrTrustedCAListNotFound) {
		t.Fatalf("expected ErrTrustedCAListNotFound, got %v", err)
	}
}

func TestFileCredentialStoreMissingFile(t *testing.T) {
	t.Setenv("SCB_PLUGIN_STATE_DIRECTORY", t.TempDir())

	_, err := openStore(t, "[credential_store]\nname = nonexistent\n")
	if !errors.Is(err, apperrors.ErrCredentialStoreNotFound) {
		t.Fatalf("expected ErrCredentialStoreNotFound, got %v", err)
	}
}

func TestFileCredentialStoreWiredThroughConfiguration(t *testing.T) {
	t.Setenv("SCB_PLUGIN_STATE_DIRECTORY", t.TempDir())
	writeStoreFile(t, "local", storeJSON)

	var cfg *configuration.Configuration
	provider := func() (configuration.CredentialStore, error) {
		return OpenFileCredentialStore(cfg)
	}
	cfg, err := configuration.New(
		"[credential_store]\nname = local\n[ldap_server]\nbind_password = $\n",
		configuration.WithCredentialStore(provider),
	)
	if err != nil {
		t.Fatalf("configuration.New: %v", err)
	}

	value, err := cfg.Get("ldap_server", "bind_password", "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if value != "s3cret" {
		t.Fatalf("resolved value = %q", value)
	}
}
