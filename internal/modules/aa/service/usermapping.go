package service

import (
	"context"
	"strings"

	"gatekit/internal/modules/aa/domain"
)

const (
	sectionMappingExplicit = "usermapping source=explicit"
	sectionMappingLDAP     = "usermapping source=ldap_server"
)

// stepMapUsernameExplicit rewrites the MFA identity from a configuration
// section keyed by lowercased username. A missing key leaves the identity
// unchanged.
func (svc *AAService) stepMapUsernameExplicit(_ context.Context, s *Session) (*domain.Verdict, error) {
	mapped, ok, err := svc.cfg.Lookup(sectionMappingExplicit, strings.ToLower(s.Username()))
	if err != nil {
		return nil, err
	}
	if ok && mapped != "" {
		s.logger.Debug("explicit user mapping applied", "mfa_identity", mapped)
		s.SetMFAIdentity(mapped)
	}
	return nil, nil
}

// stepMapUsernameLDAP replaces the MFA identity with the first value of the
// configured LDAP attribute. Directory errors, including unknown users,
// leave the identity unchanged.
func (svc *AAService) stepMapUsernameLDAP(ctx context.Context, s *Session) (*domain.Verdict, error) {
	if !svc.cfg.HasSection(sectionMappingLDAP) {
		return nil, nil
	}
	attribute, err := svc.cfg.GetRequired(sectionMappingLDAP, "user_attribute")
	if err != nil {
		return nil, err
	}
	if svc.deps.Directory == nil {
		s.logger.Warn("ldap user mapping configured but no directory available")
		return nil, nil
	}
	values, err := svc.deps.Directory.UserAttribute(ctx, s.Username(), attribute)
	if err != nil {
		s.logger.Warn("ldap user mapping lookup failed", "attribute", attribute, "error", err)
		return nil, nil
	}
	if len(values) > 0 && values[0] != "" {
		s.logger.Debug("ldap user mapping applied", "mfa_identity", values[0])
		s.SetMFAIdentity(values[0])
	}
	return nil, nil
}
