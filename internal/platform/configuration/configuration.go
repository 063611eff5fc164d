// Package configuration provides the plugin configuration layer: an
// INI-style text blob layered over design-time defaults, typed accessors,
// and credential-store indirection for secret values.
package configuration

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	apperrors "gatekit/internal/platform/errors"
)

// CredentialStore resolves secrets referenced from configuration values.
type CredentialStore interface {
	Secret(section, option string) (string, error)
	TrustedCAs(name string) ([]string, error)
}

// StoreProvider opens the credential store on first use. Lookups that never
// hit a $ marker never contact the store.
type StoreProvider func() (CredentialStore, error)

type Configuration struct {
	runtime  *iniFile
	defaults *iniFile

	provider  StoreProvider
	storeOnce sync.Once
	store     CredentialStore
	storeErr  error
}

type Option func(*Configuration)

// WithDefaults layers design-time defaults under the runtime configuration.
// Runtime values win.
func WithDefaults(text string) Option {
	return func(c *Configuration) {
		file, err := parseINI(text)
		if err != nil {
			panic(fmt.Sprintf("invalid default configuration: %v", err))
		}
		c.defaults = file
	}
}

// WithCredentialStore installs the provider used to resolve $ values.
func WithCredentialStore(provider StoreProvider) Option {
	return func(c *Configuration) {
		c.provider = provider
	}
}

func New(text string, opts ...Option) (*Configuration, error) {
	file, err := parseINI(text)
	if err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	cfg := &Configuration{runtime: file, defaults: newIniFile()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, nil
}

// Lookup returns the raw value with secret indirection applied: a value of
// "$" resolves to the credential-store secret for (section, option), "$$"
// means the literal "$". The second return reports whether the option exists.
func (c *Configuration) Lookup(section, option string) (string, bool, error) {
	raw, ok := c.runtime.lookup(section, option)
	if !ok {
		raw, ok = c.defaults.lookup(section, option)
	}
	if !ok {
		return "", false, nil
	}
	switch raw {
	case "$$":
		return "$", true, nil
	case "$":
		store, err := c.credentialStore()
		if err != nil {
			return "", true, err
		}
		secret, err := store.Secret(section, option)
		if err != nil {
			return "", true, fmt.Errorf("resolve secret for [%s] %s: %w", section, option, err)
		}
		return secret, true, nil
	default:
		return raw, true, nil
	}
}

// Get returns the value or fallback when the option is absent.
func (c *Configuration) Get(section, option, fallback string) (string, error) {
	value, ok, err := c.Lookup(section, option)
	if err != nil {
		return "", err
	}
	if !ok {
		return fallback, nil
	}
	return value, nil
}

// GetRequired returns the value or ErrRequiredSettingNotFound.
func (c *Configuration) GetRequired(section, option string) (string, error) {
	value, ok, err := c.Lookup(section, option)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("[%s] %s: %w", section, option, apperrors.ErrRequiredSettingNotFound)
	}
	return value, nil
}

func (c *Configuration) GetInt(section, option string, fallback int) (int, error) {
	value, ok, err := c.Lookup(section, option)
	if err != nil {
		return 0, err
	}
	if !ok {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: %q is not an integer: %w", section, option, value, apperrors.ErrInvalidValue)
	}
	return parsed, nil
}

func (c *Configuration) GetFloat(section, option string, fallback float64) (float64, error) {
	value, ok, err := c.Lookup(section, option)
	if err != nil {
		return 0, err
	}
	if !ok {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: %q is not a number: %w", section, option, value, apperrors.ErrInvalidValue)
	}
	return parsed, nil
}

// GetBool recognises only yes and no, case-insensitively.
func (c *Configuration) GetBool(section, option string, fallback bool) (bool, error) {
	value, ok, err := c.Lookup(section, option)
	if err != nil {
		return false, err
	}
	if !ok {
		return fallback, nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("[%s] %s: expected yes or no, got %q: %w", section, option, value, apperrors.ErrInvalidValue)
	}
}

// GetIEnum lower-cases the value and checks membership in allowed.
func (c *Configuration) GetIEnum(section, option string, allowed []string, fallback string) (string, error) {
	value, ok, err := c.Lookup(section, option)
	if err != nil {
		return "", err
	}
	if !ok {
		return fallback, nil
	}
	lowered := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range allowed {
		if lowered == candidate {
			return lowered, nil
		}
	}
	return "", fmt.Errorf("[%s] %s: %q is not one of %s: %w",
		section, option, value, strings.Join(allowed, ","), apperrors.ErrInvalidValue)
}

// GetList comma-splits the value with surrounding whitespace stripped.
// A missing option yields fallback; an empty value yields an empty list.
func (c *Configuration) GetList(section, option string, fallback []string) ([]string, error) {
	value, ok, err := c.Lookup(section, option)
	if err != nil {
		return nil, err
	}
	if !ok {
		return fallback, nil
	}
	if strings.TrimSpace(value) == "" {
		return []string{}, nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.TrimSpace(part))
	}
	return out, nil
}

// Options lists the option names present in a section, in file order.
func (c *Configuration) Options(section string) []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range c.runtime.options(section) {
		seen[name] = true
		out = append(out, name)
	}
	for _, name := range c.defaults.options(section) {
		if !seen[name] {
			out = append(out, name)
		}
	}
	return out
}

// HasSection reports whether the section exists in runtime or defaults.
func (c *Configuration) HasSection(section string) bool {
	if _, ok := c.runtime.sections[section]; ok {
		return true
	}
	_, ok := c.defaults.sections[section]
	return ok
}

func (c *Configuration) credentialStore() (CredentialStore, error) {
	c.storeOnce.Do(func() {
		if c.provider == nil {
			c.storeErr = apperrors.ErrCredentialStoreNotFound
			return
		}
		c.store, c.storeErr = c.provider()
	})
	return c.store, c.storeErr
}
