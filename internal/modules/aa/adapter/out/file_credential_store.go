package out

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gatekit/internal/platform/configuration"
	apperrors "gatekit/internal/platform/errors"
)

const (
	sectionCredentialStore = "credential_store"
	credentialStoreSubdir  = "credential_stores"
)

type credentialStoreFile struct {
	Secrets    map[string]string   `json:"secrets"`
	TrustedCAs map[string][]string `json:"trusted_cas"`
}

// FileCredentialStore resolves "$" secret references from a JSON file named
// after the store under the plugin state directory. The file is read once
// when the store is opened; plugins are short-lived so there is no reload.
type FileCredentialStore struct {
	name string
	data credentialStoreFile
}

// OpenFileCredentialStore is the configuration.StoreProvider used by the
// bootstrap wiring. The store name comes from [credential_store] name.
func OpenFileCredentialStore(cfg *configuration.Configuration) (configuration.CredentialStore, error) {
	name, err := cfg.GetRequired(sectionCredentialStore, "name")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(pluginStateDir(), credentialStoreSubdir, name+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("credential store %q: %w", name, apperrors.ErrCredentialStoreNotFound)
		}
		return nil, fmt.Errorf("credential store %q: %w", name, err)
	}
	store := &FileCredentialStore{name: name}
	if err := json.Unmarshal(raw, &store.data); err != nil {
		return nil, fmt.Errorf("credential store %q: %w", name, err)
	}
	return store, nil
}

func (s *FileCredentialStore) Secret(section, option string) (string, error) {
	secret, ok := s.data.Secrets[section+"/"+option]
	if !ok {
		return "", fmt.Errorf("credential store %q has no secret for %s/%s: %w",
			s.name, section, option, apperrors.ErrSecretNotFound)
	}
	return secret, nil
}

func (s *FileCredentialStore) TrustedCAs(name string) ([]string, error) {
	cas, ok := s.data.TrustedCAs[name]
	if !ok {
		return nil, fmt.Errorf("credential store %q has no trusted CA list %q: %w",
			s.name, name, apperrors.ErrTrustedCAListNotFound)
	}
	return cas, nil
}
