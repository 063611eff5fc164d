package configuration

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "gatekit/internal/platform/errors"
)

var (
	privateKeyRe  = regexp.MustCompile(`(?s)-----BEGIN (?:RSA |EC |DSA |ENCRYPTED |OPENSSH )?PRIVATE KEY-----.*?-----END (?:RSA |EC |DSA |ENCRYPTED |OPENSSH )?PRIVATE KEY-----`)
	certificateRe = regexp.MustCompile(`(?s)-----BEGIN CERTIFICATE-----.*?-----END CERTIFICATE-----`)
	caListRefRe   = regexp.MustCompile(`^\$\[(.+)\]$`)
)

// GetKey extracts the PEM private key embedded in the value, which may be a
// multi-line block carried by continuation lines or a $ credential-store
// reference resolving to one.
func (c *Configuration) GetKey(section, option string) (string, error) {
	value, err := c.GetRequired(section, option)
	if err != nil {
		return "", err
	}
	key := privateKeyRe.FindString(value)
	if key == "" {
		return "", fmt.Errorf("[%s] %s: no PEM private key found: %w", section, option, apperrors.ErrInvalidValue)
	}
	return key, nil
}

// GetCertificate extracts the first PEM certificate embedded in the value.
func (c *Configuration) GetCertificate(section, option string) (string, error) {
	value, err := c.GetRequired(section, option)
	if err != nil {
		return "", err
	}
	cert := certificateRe.FindString(value)
	if cert == "" {
		return "", fmt.Errorf("[%s] %s: no PEM certificate found: %w", section, option, apperrors.ErrInvalidValue)
	}
	return cert, nil
}

// GetCACertificates returns the CA chain for the option. The value is either
// inline PEM (one or more certificates) or a $[name] reference to a named
// trusted-CA list in the credential store.
func (c *Configuration) GetCACertificates(section, option string) ([]string, error) {
	raw, ok := c.rawValue(section, option)
	if !ok {
		return nil, fmt.Errorf("[%s] %s: %w", section, option, apperrors.ErrRequiredSettingNotFound)
	}
	if match := caListRefRe.FindStringSubmatch(strings.TrimSpace(raw)); match != nil {
		store, err := c.credentialStore()
		if err != nil {
			return nil, err
		}
		cas, err := store.TrustedCAs(match[1])
		if err != nil {
			return nil, fmt.Errorf("resolve trusted ca list %q: %w", match[1], err)
		}
		return cas, nil
	}
	value, err := c.GetRequired(section, option)
	if err != nil {
		return nil, err
	}
	certs := certificateRe.FindAllString(value, -1)
	if len(certs) == 0 {
		return nil, fmt.Errorf("[%s] %s: no PEM certificate found: %w", section, option, apperrors.ErrInvalidValue)
	}
	return certs, nil
}

// rawValue reads without secret indirection, so $[name] markers survive.
func (c *Configuration) rawValue(section, option string) (string, bool) {
	if v, ok := c.runtime.lookup(section, option); ok {
		return v, true
	}
	return c.defaults.lookup(section, option)
}
