package service

import (
	"context"
	"slices"

	"gatekit/internal/modules/aa/domain"
)

const (
	sectionWhitelistUserList  = "whitelist source=user_list"
	sectionWhitelistLDAPGroup = "whitelist source=ldap_server_group"
)

// stepCheckUserList accepts when the username is on the static whitelist.
// Membership is case-sensitive.
func (svc *AAService) stepCheckUserList(_ context.Context, s *Session) (*domain.Verdict, error) {
	users, err := svc.cfg.GetList(sectionWhitelistUserList, "users", nil)
	if err != nil {
		return nil, err
	}
	if slices.Contains(users, s.Username()) {
		return domain.AcceptWithReason("User is on the user whitelist"), nil
	}
	return nil, nil
}

// stepCheckLDAPGroupList accepts based on LDAP group membership. The allow
// mode selects the polarity: all_users bypasses everyone except members of
// the listed groups, no_user bypasses only members of the listed groups.
// Directory failures are non-fatal: log a warning and fall through to MFA.
func (svc *AAService) stepCheckLDAPGroupList(ctx context.Context, s *Session) (*domain.Verdict, error) {
	if !svc.cfg.HasSection(sectionWhitelistLDAPGroup) {
		return nil, nil
	}
	allow, err := svc.cfg.GetIEnum(sectionWhitelistLDAPGroup, "allow", []string{"all_users", "no_user"}, "no_user")
	if err != nil {
		return nil, err
	}
	except, err := svc.cfg.GetList(sectionWhitelistLDAPGroup, "except", []string{})
	if err != nil {
		return nil, err
	}
	if svc.deps.Directory == nil {
		s.logger.Warn("group whitelist configured but no directory available")
		return nil, nil
	}
	inExceptGroup, err := svc.deps.Directory.IsUserInAnyGroup(ctx, s.Username(), except)
	if err != nil {
		s.logger.Warn("group whitelist lookup failed", "error", err)
		return nil, nil
	}
	if (allow == "no_user") == inExceptGroup {
		return domain.AcceptWithReason("User is on the group whitelist"), nil
	}
	return nil, nil
}
