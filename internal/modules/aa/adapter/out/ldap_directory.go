package out

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	hclog "github.com/hashicorp/go-hclog"

	aaout "gatekit/internal/modules/aa/port/out"
	"gatekit/internal/platform/configuration"
	apperrors "gatekit/internal/platform/errors"
)

const sectionLDAPServer = "ldap_server"

// LDAPDirectory answers group-membership and attribute lookups against the
// LDAP server configured in [ldap_server]. Connections are opened per
// lookup and closed before returning; hook invocations are short-lived and
// holding a bound connection across them would outlive the call.
type LDAPDirectory struct {
	address      string
	port         int
	useTLS       bool
	bindDN       string
	bindPassword string
	baseDN       string
	tlsConfig    *tls.Config
	logger       hclog.Logger
}

// NewLDAPDirectoryFromConfig returns nil without error when no
// [ldap_server] section is configured; the LDAP-backed steps then skip.
func NewLDAPDirectoryFromConfig(cfg *configuration.Configuration, logger hclog.Logger) (aaout.Directory, error) {
	if !cfg.HasSection(sectionLDAPServer) {
		return nil, nil
	}
	address, err := cfg.GetRequired(sectionLDAPServer, "address")
	if err != nil {
		return nil, err
	}
	useTLS, err := cfg.GetBool(sectionLDAPServer, "use_tls", false)
	if err != nil {
		return nil, err
	}
	defaultPort := 389
	if useTLS {
		defaultPort = 636
	}
	port, err := cfg.GetInt(sectionLDAPServer, "port", defaultPort)
	if err != nil {
		return nil, err
	}
	bindDN, err := cfg.Get(sectionLDAPServer, "bind_dn", "")
	if err != nil {
		return nil, err
	}
	bindPassword, err := cfg.Get(sectionLDAPServer, "bind_password", "")
	if err != nil {
		return nil, err
	}
	baseDN, err := cfg.GetRequired(sectionLDAPServer, "base_dn")
	if err != nil {
		return nil, err
	}
	directory := &LDAPDirectory{
		address:      address,
		port:         port,
		useTLS:       useTLS,
		bindDN:       bindDN,
		bindPassword: bindPassword,
		baseDN:       baseDN,
		logger:       logger,
	}
	if useTLS {
		directory.tlsConfig, err = tlsConfigFromSection(cfg, address)
		if err != nil {
			return nil, err
		}
	}
	return directory, nil
}

func tlsConfigFromSection(cfg *configuration.Configuration, serverName string) (*tls.Config, error) {
	// Without a pinned ca_certificate the system roots apply.
	tlsConfig := &tls.Config{ServerName: serverName}
	if hasCACertificate(cfg) {
		cas, err := cfg.GetCACertificates(sectionLDAPServer, "ca_certificate")
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		for _, pem := range cas {
			if !pool.AppendCertsFromPEM([]byte(pem)) {
				return nil, fmt.Errorf("[%s] ca_certificate: %w", sectionLDAPServer, apperrors.ErrInvalidValue)
			}
		}
		tlsConfig.RootCAs = pool
	}
	return tlsConfig, nil
}

func hasCACertificate(cfg *configuration.Configuration) bool {
	for _, option := range cfg.Options(sectionLDAPServer) {
		if option == "ca_certificate" {
			return true
		}
	}
	return false
}

func (d *LDAPDirectory) IsUserInAnyGroup(ctx context.Context, username string, groups []string) (bool, error) {
	if len(groups) == 0 {
		return false, nil
	}
	entry, err := d.searchUser(ctx, username, []string{"memberOf"})
	if err != nil {
		return false, err
	}
	for _, memberOf := range entry.GetAttributeValues("memberOf") {
		name := groupNameFromDN(memberOf)
		for _, group := range groups {
			if strings.EqualFold(name, group) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (d *LDAPDirectory) UserAttribute(ctx context.Context, username, attribute string) ([]string, error) {
	entry, err := d.searchUser(ctx, username, []string{attribute})
	if err != nil {
		return nil, err
	}
	return entry.GetAttributeValues(attribute), nil
}

func (d *LDAPDirectory) searchUser(ctx context.Context, username string, attributes []string) (*ldap.Entry, error) {
	conn, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	filter := fmt.Sprintf("(|(sAMAccountName=%s)(uid=%s))",
		ldap.EscapeFilter(username), ldap.EscapeFilter(username))
	request := ldap.NewSearchRequest(
		d.baseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter, attributes, nil,
	)
	result, err := conn.Search(request)
	if err != nil {
		return nil, fmt.Errorf("ldap search for %q: %w", username, err)
	}
	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("ldap user %q: %w", username, apperrors.ErrUserNotFound)
	}
	if len(result.Entries) > 1 {
		d.logger.Warn("ambiguous ldap user, using first entry", "username", username, "entries", len(result.Entries))
	}
	return result.Entries[0], nil
}

func (d *LDAPDirectory) connect(ctx context.Context) (*ldap.Conn, error) {
	endpoint := fmt.Sprintf("%s:%d", d.address, d.port)
	var conn *ldap.Conn
	var err error
	if d.useTLS {
		conn, err = ldap.DialURL("ldaps://"+endpoint, ldap.DialWithTLSConfig(d.tlsConfig))
	} else {
		conn, err = ldap.DialURL("ldap://" + endpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("ldap dial %s: %w", endpoint, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetTimeout(time.Until(deadline))
	}
	if d.bindDN != "" {
		if err := conn.Bind(d.bindDN, d.bindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ldap bind as %s: %w", d.bindDN, err)
		}
	}
	return conn, nil
}

// groupNameFromDN extracts the leading RDN value of a group DN, e.g.
// CN=admins,OU=groups,DC=corp -> admins. Values that are not DNs are
// returned as-is.
func groupNameFromDN(dn string) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 || len(parsed.RDNs[0].Attributes) == 0 {
		return dn
	}
	return parsed.RDNs[0].Attributes[0].Value
}
