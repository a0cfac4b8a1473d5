package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/smallbiznis/idadmin/internal/audit/masking"
	"github.com/smallbiznis/idadmin/internal/authorization"
	grantdomain "github.com/smallbiznis/idadmin/internal/grant/domain"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
	sessiondomain "github.com/smallbiznis/idadmin/internal/serversession/domain"
	useradmindomain "github.com/smallbiznis/idadmin/internal/useradmin/domain"
	"github.com/smallbiznis/idadmin/pkg/db/pagination"
)

const (
	tabProfile        = "profile"
	tabClaims         = "claims"
	tabRoles          = "roles"
	tabSecurity       = "security"
	tabGrantsSessions = "grantssessions"

	msgConcurrencyFailure = "The user was modified by another administrator. Please reload and try again."

	lockoutStatusLocked = "Locked Out"

	contextUserEditAction = "user_edit_action"
)

var userTabs = map[string]struct{}{
	tabProfile:        {},
	tabClaims:         {},
	tabRoles:          {},
	tabSecurity:       {},
	tabGrantsSessions: {},
}

type listUsersQuery struct {
	pagination.Pagination
	Search string `form:"search"`
}

type userRow struct {
	ID               string
	UserName         string
	Email            string
	EmailConfirmed   bool
	TwoFactorEnabled bool
	LockoutStatus    string
}

type usersPage struct {
	CanWrite bool
	Search   string
	Users    []userRow
	NextURL  string
}

type createUserForm struct {
	UserName string `form:"user_name" binding:"required,max=256"`
	Email    string `form:"email" binding:"required,email,max=256"`
	Password string `form:"password"`
}

type userCreatePage struct {
	Form        createUserForm
	FieldErrors map[string]string
}

// userPermissions mirrors the policy table for the edit page so templates can
// hide what the principal may not use.
type userPermissions struct {
	ReadUsers      bool
	WriteUsers     bool
	DeleteUsers    bool
	ReadClaims     bool
	WriteClaims    bool
	DeleteClaims   bool
	ReadRoles      bool
	WriteRoles     bool
	DeleteRoles    bool
	ReadGrants     bool
	DeleteGrants   bool
	ReadSessions   bool
	DeleteSessions bool
}

type userEditPage struct {
	UserID      string
	Tab         string
	Page        *useradmindomain.UserEditPageData
	Can         userPermissions
	Profile     useradmindomain.UserProfileEditViewModel
	FieldErrors map[string]string
	IsSelf      bool
}

// userEditState is what a failed post hands back to the page: the tab to
// show, inline errors, and optionally the profile input to keep.
type userEditState struct {
	tab         string
	profile     *useradmindomain.UserProfileEditViewModel
	fieldErrors map[string]string
	errors      []string
}

type userEditHandler struct {
	policy authorization.Policy
	action string
	run    func(s *Server, c *gin.Context, user *identitydomain.User)
}

var userEditHandlers = map[string]userEditHandler{
	"profile":                         {authorization.UsersWrite, "update", (*Server).updateUserProfile},
	"delete":                          {authorization.UsersDelete, "delete", (*Server).deleteUser},
	"claims-add":                      {authorization.UserClaimsWrite, "claims_add", (*Server).addUserClaim},
	"claims-remove":                   {authorization.UserClaimsDelete, "claims_remove", (*Server).removeUserClaims},
	"claims-replace":                  {authorization.UserClaimsWrite, "claims_replace", (*Server).replaceUserClaim},
	"roles-add":                       {authorization.UserRolesWrite, "roles_add", (*Server).addUserRoles},
	"roles-remove":                    {authorization.UserRolesDelete, "roles_remove", (*Server).removeUserRoles},
	"security-reset-password":         {authorization.UsersWrite, "reset_password", (*Server).resetUserPassword},
	"security-disable-account":        {authorization.UsersWrite, "disable_account", (*Server).disableUserAccount},
	"security-enable-account":         {authorization.UsersWrite, "enable_account", (*Server).enableUserAccount},
	"security-clear-lockout":          {authorization.UsersWrite, "clear_lockout", (*Server).clearUserLockout},
	"security-toggle-lockout-enabled": {authorization.UsersWrite, "toggle_lockout", (*Server).toggleUserLockout},
	"security-reset-failed-count":     {authorization.UsersWrite, "reset_failed_count", (*Server).resetUserFailedCount},
	"security-toggle-two-factor":      {authorization.UsersWrite, "toggle_two_factor", (*Server).toggleUserTwoFactor},
	"security-reset-authenticator":    {authorization.UsersWrite, "reset_authenticator", (*Server).resetUserAuthenticator},
	"security-force-sign-out":         {authorization.UsersWrite, "force_sign_out", (*Server).forceUserSignOut},
	"grants-revoke":                   {authorization.UserGrantsDelete, "grant_revoke", (*Server).revokeUserGrant},
	"grants-revoke-all":               {authorization.UserGrantsDelete, "grants_revoke_all", (*Server).revokeAllUserGrants},
	"sessions-end":                    {authorization.UserSessionsDelete, "session_end", (*Server).endUserSession},
	"sessions-end-all":                {authorization.UserSessionsDelete, "sessions_end_all", (*Server).endAllUserSessions},
}

func (s *Server) ListUsers(c *gin.Context) {
	var query listUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	search := strings.TrimSpace(query.Search)

	resp, err := s.users.List(c.Request.Context(), identitydomain.ListUsersRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  int32(query.PageSize),
		Search:    search,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	now := s.clock.Now()
	rows := make([]userRow, 0, len(resp.Users))
	for _, u := range resp.Users {
		rows = append(rows, userRow{
			ID:               u.ID,
			UserName:         u.UserName,
			Email:            u.Email,
			EmailConfirmed:   u.EmailConfirmed,
			TwoFactorEnabled: u.TwoFactorEnabled,
			LockoutStatus:    lockoutStatus(u.LockoutEnd, now),
		})
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"data": rows, "page_info": resp.PageInfo})
		return
	}

	page := usersPage{
		CanWrite: s.allowed(c, authorization.UsersWrite),
		Search:   search,
		Users:    rows,
	}
	if resp.HasMore && resp.NextPageToken != "" {
		page.NextURL = nextPageURL("/admin/users", c.Request.URL.Query(), resp.NextPageToken)
	}
	s.render(c, http.StatusOK, "users", view{Title: "Users", Data: page})
}

// lockoutStatus is the short form of the account status used by the index.
func lockoutStatus(end *time.Time, now time.Time) string {
	switch {
	case identitydomain.IsDisabled(end):
		return identitydomain.StatusDisabled
	case identitydomain.IsLockedOut(end, now):
		return lockoutStatusLocked
	default:
		return identitydomain.StatusActive
	}
}

func (s *Server) CreateUserPage(c *gin.Context) {
	s.render(c, http.StatusOK, "user_create", view{Title: "Create user", Data: userCreatePage{}})
}

func (s *Server) CreateUser(c *gin.Context) {
	var form createUserForm
	if err := c.ShouldBind(&form); err != nil {
		fieldErrs, ok := fieldErrors(err)
		if !ok {
			AbortWithError(c, invalidRequestError())
			return
		}
		s.recordMutationFailure(c, "user", "create")
		form.Password = ""
		s.render(c, http.StatusOK, "user_create", view{
			Title: "Create user",
			Data:  userCreatePage{Form: form, FieldErrors: fieldErrs},
		})
		return
	}

	user, err := s.users.Create(c.Request.Context(), identitydomain.CreateUserRequest{
		UserName: form.UserName,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		errs, ok := identitydomain.AsErrors(err)
		if !ok {
			AbortWithError(c, err)
			return
		}
		s.recordMutationFailure(c, "user", "create")
		form.Password = ""
		s.render(c, http.StatusOK, "user_create", view{
			Title:  "Create user",
			Errors: identityMessages(errs),
			Data:   userCreatePage{Form: form},
		})
		return
	}

	s.recordMutation(c, "user", "create", user.ID, map[string]any{
		"user_name":    user.UserName,
		"has_password": form.Password != "",
	})
	s.redirectWithFlash(c, userEditURL(user.ID, ""), fmt.Sprintf("User '%s' created successfully", user.UserName))
}

func (s *Server) EditUserPage(c *gin.Context) {
	if err := s.authorize(c, authorization.UsersRead); err != nil {
		AbortWithError(c, err)
		return
	}
	tab := strings.ToLower(strings.TrimSpace(c.Query("tab")))
	if _, ok := userTabs[tab]; !ok {
		tab = tabProfile
	}
	s.renderUserEdit(c, http.StatusOK, strings.TrimSpace(c.Param("userId")), userEditState{tab: tab})
}

// EditUser dispatches a post from the user edit page. Every handler checks
// its own policy before the user is loaded.
func (s *Server) EditUser(c *gin.Context) {
	h, ok := userEditHandlers[c.Param("handler")]
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}
	if err := s.authorize(c, h.policy); err != nil {
		AbortWithError(c, err)
		return
	}

	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		AbortWithError(c, invalidRequestError())
		return
	}
	user, err := s.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if user == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	c.Set(contextUserEditAction, h.action)
	h.run(s, c, user)
}

func (s *Server) updateUserProfile(c *gin.Context, user *identitydomain.User) {
	var vm useradmindomain.UserProfileEditViewModel
	if err := binding.MapFormWithTag(&vm, c.Request.PostForm, "form"); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	vm.UserID = user.ID
	if err := binding.Validator.ValidateStruct(&vm); err != nil {
		fieldErrs, ok := fieldErrors(err)
		if !ok {
			AbortWithError(c, err)
			return
		}
		s.failUserEdit(c, user.ID, userEditState{tab: tabProfile, profile: &vm, fieldErrors: fieldErrs})
		return
	}

	req := useradmindomain.UserEditPostUpdateRequest{UserID: user.ID, Profile: &vm}
	if pw := c.PostForm("new_password"); strings.TrimSpace(pw) != "" {
		req.NewPassword = &pw
	}
	if v, ok := postedBool(c, "lockout_enabled"); ok {
		req.LockoutEnabled = &v
	}
	if v, ok := postedBool(c, "two_factor_enabled"); ok {
		req.TwoFactorEnabled = &v
	}

	s.applyUserUpdate(c, user.ID, tabProfile, req, "User updated successfully", map[string]any{
		"user_name": strings.TrimSpace(vm.UserName),
		"email":     strings.TrimSpace(vm.Email),
	})
}

func (s *Server) deleteUser(c *gin.Context, user *identitydomain.User) {
	if currentPrincipal(c).UserID == user.ID {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.users.Delete(c.Request.Context(), user); err != nil {
		s.failUserStoreMutation(c, user.ID, tabProfile, err)
		return
	}
	s.recordMutation(c, "user", userEditAction(c), user.ID, map[string]any{"user_name": user.UserName})
	s.redirectWithFlash(c, "/admin/users", "User deleted successfully")
}

func (s *Server) addUserClaim(c *gin.Context, user *identitydomain.User) {
	claimType := strings.TrimSpace(c.PostForm("new_claim_type"))
	if claimType == "" {
		s.failUserEdit(c, user.ID, userEditState{
			tab:         tabClaims,
			fieldErrors: map[string]string{"new_claim_type": "Claim type is required"},
		})
		return
	}
	claim := identitydomain.Claim{Type: claimType, Value: c.PostForm("new_claim_value")}
	err := s.users.AddClaim(c.Request.Context(), user, claim)
	s.finishUserStoreMutation(c, user.ID, tabClaims, err, "Claim added successfully", map[string]any{
		"claim_type": claim.Type,
	})
}

func (s *Server) removeUserClaims(c *gin.Context, user *identitydomain.User) {
	selected := c.PostFormArray("selected_claims")
	claims := make([]identitydomain.Claim, 0, len(selected))
	for _, raw := range selected {
		claims = append(claims, parseClaim(raw))
	}
	if len(claims) == 0 {
		s.failUserEdit(c, user.ID, userEditState{tab: tabClaims, errors: []string{"Select at least one claim to remove"}})
		return
	}

	ctx := c.Request.Context()
	for _, claim := range claims {
		if err := s.users.RemoveClaim(ctx, user, claim); err != nil {
			s.failUserStoreMutation(c, user.ID, tabClaims, err)
			return
		}
	}
	types := make([]string, 0, len(claims))
	for _, claim := range claims {
		types = append(types, claim.Type)
	}
	s.finishUserStoreMutation(c, user.ID, tabClaims, nil, fmt.Sprintf("%d claim(s) removed", len(claims)), map[string]any{
		"claim_types": types,
	})
}

// parseClaim splits a "type:value" checkbox value at the first colon. A
// value without a colon is a claim type with an empty value.
func parseClaim(raw string) identitydomain.Claim {
	claimType, value, found := strings.Cut(raw, ":")
	if !found {
		return identitydomain.Claim{Type: raw}
	}
	return identitydomain.Claim{Type: claimType, Value: value}
}

func (s *Server) replaceUserClaim(c *gin.Context, user *identitydomain.User) {
	oldType := strings.TrimSpace(c.PostForm("old_claim_type"))
	newType := strings.TrimSpace(c.PostForm("replacement_claim_type"))
	if oldType == "" || newType == "" {
		s.failUserEdit(c, user.ID, userEditState{tab: tabClaims, errors: []string{"Claim type is required"}})
		return
	}
	oldClaim := identitydomain.Claim{Type: oldType, Value: c.PostForm("old_claim_value")}
	newClaim := identitydomain.Claim{Type: newType, Value: c.PostForm("replacement_claim_value")}
	err := s.users.ReplaceClaim(c.Request.Context(), user, oldClaim, newClaim)
	s.finishUserStoreMutation(c, user.ID, tabClaims, err, "Claim replaced successfully", map[string]any{
		"old_claim_type": oldClaim.Type,
		"new_claim_type": newClaim.Type,
	})
}

func (s *Server) addUserRoles(c *gin.Context, user *identitydomain.User) {
	s.changeUserRoles(c, user, "selected_roles_to_add", "Select at least one role", "Added to %d role(s)", s.users.AddToRole)
}

func (s *Server) removeUserRoles(c *gin.Context, user *identitydomain.User) {
	s.changeUserRoles(c, user, "selected_roles_to_remove", "Select at least one role to remove", "Removed from %d role(s)", s.users.RemoveFromRole)
}

func (s *Server) changeUserRoles(
	c *gin.Context,
	user *identitydomain.User,
	field, emptyMessage, successFormat string,
	apply func(ctx context.Context, user *identitydomain.User, role string) error,
) {
	roles := nonBlank(c.PostFormArray(field))
	if len(roles) == 0 {
		s.failUserEdit(c, user.ID, userEditState{tab: tabRoles, errors: []string{emptyMessage}})
		return
	}
	ctx := c.Request.Context()
	for _, role := range roles {
		if err := apply(ctx, user, role); err != nil {
			s.failUserStoreMutation(c, user.ID, tabRoles, err)
			return
		}
	}
	s.finishUserStoreMutation(c, user.ID, tabRoles, nil, fmt.Sprintf(successFormat, len(roles)), map[string]any{
		"roles": roles,
	})
}

func (s *Server) resetUserPassword(c *gin.Context, user *identitydomain.User) {
	pw := c.PostForm("new_password")
	if strings.TrimSpace(pw) == "" {
		s.failUserEdit(c, user.ID, userEditState{
			tab:         tabSecurity,
			fieldErrors: map[string]string{"new_password": "New password is required"},
		})
		return
	}
	profile, ok := s.securityProfile(c, user.ID)
	if !ok {
		return
	}
	s.applyUserUpdate(c, user.ID, tabSecurity, useradmindomain.UserEditPostUpdateRequest{
		UserID:      user.ID,
		Profile:     profile,
		NewPassword: &pw,
	}, "Password reset successfully", masking.Redact(map[string]any{"new_password": pw}, "new_password"))
}

func (s *Server) disableUserAccount(c *gin.Context, user *identitydomain.User) {
	end := identitydomain.MaxLockoutEnd
	err := s.users.SetLockoutEnd(c.Request.Context(), user, &end)
	s.finishUserStoreMutation(c, user.ID, tabSecurity, err, "Account disabled", nil)
}

func (s *Server) enableUserAccount(c *gin.Context, user *identitydomain.User) {
	err := s.users.SetLockoutEnd(c.Request.Context(), user, nil)
	s.finishUserStoreMutation(c, user.ID, tabSecurity, err, "Account enabled", nil)
}

// clearUserLockout ignores a user without lockout enabled and still resets
// the failed count.
func (s *Server) clearUserLockout(c *gin.Context, user *identitydomain.User) {
	ctx := c.Request.Context()
	if err := s.users.SetLockoutEnd(ctx, user, nil); err != nil {
		if _, ok := identitydomain.AsErrors(err); !ok {
			AbortWithError(c, err)
			return
		}
	}
	err := s.users.ResetAccessFailedCount(ctx, user)
	s.finishUserStoreMutation(c, user.ID, tabSecurity, err, "Lockout cleared", nil)
}

func (s *Server) toggleUserLockout(c *gin.Context, user *identitydomain.User) {
	enabled, _ := postedBool(c, "lockout_enabled")
	profile, ok := s.securityProfile(c, user.ID)
	if !ok {
		return
	}
	message := "Lockout disabled"
	if enabled {
		message = "Lockout enabled"
	}
	s.applyUserUpdate(c, user.ID, tabSecurity, useradmindomain.UserEditPostUpdateRequest{
		UserID:         user.ID,
		Profile:        profile,
		LockoutEnabled: &enabled,
	}, message, map[string]any{"lockout_enabled": enabled})
}

func (s *Server) resetUserFailedCount(c *gin.Context, user *identitydomain.User) {
	err := s.users.ResetAccessFailedCount(c.Request.Context(), user)
	s.finishUserStoreMutation(c, user.ID, tabSecurity, err, "Failed access count reset", nil)
}

func (s *Server) toggleUserTwoFactor(c *gin.Context, user *identitydomain.User) {
	enabled, _ := postedBool(c, "two_factor_enabled")
	profile, ok := s.securityProfile(c, user.ID)
	if !ok {
		return
	}
	message := "Two-factor authentication disabled"
	if enabled {
		message = "Two-factor authentication enabled"
	}
	s.applyUserUpdate(c, user.ID, tabSecurity, useradmindomain.UserEditPostUpdateRequest{
		UserID:           user.ID,
		Profile:          profile,
		TwoFactorEnabled: &enabled,
	}, message, map[string]any{"two_factor_enabled": enabled})
}

func (s *Server) resetUserAuthenticator(c *gin.Context, user *identitydomain.User) {
	err := s.users.ResetAuthenticatorKey(c.Request.Context(), user)
	s.finishUserStoreMutation(c, user.ID, tabSecurity, err, "Authenticator key reset", nil)
}

// forceUserSignOut rotates the security stamp, which invalidates console
// cookies, and drops any server-side sessions of the user.
func (s *Server) forceUserSignOut(c *gin.Context, user *identitydomain.User) {
	ctx := c.Request.Context()
	if err := s.users.UpdateSecurityStamp(ctx, user); err != nil {
		s.failUserStoreMutation(c, user.ID, tabSecurity, err)
		return
	}
	if s.sessionStore != nil {
		if err := s.sessionStore.DeleteSessions(ctx, sessiondomain.Filter{SubjectID: user.ID}); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	s.finishUserStoreMutation(c, user.ID, tabSecurity, nil, "User has been signed out of all sessions", nil)
}

// revokeUserGrant only removes grants issued to user; a key belonging to
// someone else reads as not found.
func (s *Server) revokeUserGrant(c *gin.Context, user *identitydomain.User) {
	if key := strings.TrimSpace(c.PostForm("grant_key")); key != "" {
		ctx := c.Request.Context()
		grant, err := s.grants.Get(ctx, key)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if grant == nil || grant.SubjectID != user.ID {
			AbortWithError(c, ErrNotFound)
			return
		}
		if err := s.grants.Remove(ctx, key); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	s.finishUserStoreMutation(c, user.ID, tabGrantsSessions, nil, "Grant revoked", nil)
}

func (s *Server) revokeAllUserGrants(c *gin.Context, user *identitydomain.User) {
	if err := s.grants.RemoveAll(c.Request.Context(), grantdomain.Filter{SubjectID: user.ID}); err != nil {
		AbortWithError(c, err)
		return
	}
	s.finishUserStoreMutation(c, user.ID, tabGrantsSessions, nil, "All grants revoked", nil)
}

func (s *Server) endUserSession(c *gin.Context, user *identitydomain.User) {
	if key := strings.TrimSpace(c.PostForm("session_key")); key != "" && s.sessionStore != nil {
		if err := s.sessionStore.DeleteSession(c.Request.Context(), key); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	s.finishUserStoreMutation(c, user.ID, tabGrantsSessions, nil, "Session ended", nil)
}

func (s *Server) endAllUserSessions(c *gin.Context, user *identitydomain.User) {
	if s.sessionStore != nil {
		if err := s.sessionStore.DeleteSessions(c.Request.Context(), sessiondomain.Filter{SubjectID: user.ID}); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	s.finishUserStoreMutation(c, user.ID, tabGrantsSessions, nil, "All sessions ended", nil)
}

// securityProfile is the stored profile with the posted concurrency stamp
// laid over it, so security actions only touch their own fields.
func (s *Server) securityProfile(c *gin.Context, userID string) (*useradmindomain.UserProfileEditViewModel, bool) {
	profile, err := s.userAdminSvc.GetUserForEdit(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	if profile == nil {
		AbortWithError(c, ErrNotFound)
		return nil, false
	}
	if stamp := strings.TrimSpace(c.PostForm("concurrency_stamp")); stamp != "" {
		profile.ConcurrencyStamp = stamp
	}
	return profile, true
}

// applyUserUpdate runs the editor pipeline and either redirects with message
// or re-renders tab with the failures.
func (s *Server) applyUserUpdate(c *gin.Context, userID, tab string, req useradmindomain.UserEditPostUpdateRequest, message string, metadata map[string]any) {
	result, err := s.userAdminSvc.UpdateUserFromEditPost(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !result.UserFound {
		AbortWithError(c, ErrNotFound)
		return
	}
	if !result.Succeeded() {
		var errs []string
		if result.HasCode(identitydomain.CodeConcurrencyFailure) {
			errs = append(errs, msgConcurrencyFailure)
		}
		errs = append(errs, identityMessages(result.Errors)...)
		s.failUserEdit(c, userID, userEditState{tab: tab, profile: req.Profile, errors: errs})
		return
	}

	s.recordMutation(c, "user", userEditAction(c), userID, metadata)
	s.redirectWithFlash(c, userEditURL(userID, tab), message)
}

func (s *Server) finishUserStoreMutation(c *gin.Context, userID, tab string, err error, message string, metadata map[string]any) {
	if err != nil {
		s.failUserStoreMutation(c, userID, tab, err)
		return
	}
	s.recordMutation(c, "user", userEditAction(c), userID, metadata)
	s.redirectWithFlash(c, userEditURL(userID, tab), message)
}

// failUserStoreMutation re-renders tab for identity validation failures and
// aborts on anything else.
func (s *Server) failUserStoreMutation(c *gin.Context, userID, tab string, err error) {
	errs, ok := identitydomain.AsErrors(err)
	if !ok {
		AbortWithError(c, err)
		return
	}
	var messages []string
	for _, e := range errs {
		if e.Code == identitydomain.CodeConcurrencyFailure {
			messages = append(messages, msgConcurrencyFailure)
			break
		}
	}
	messages = append(messages, identityMessages(errs)...)
	s.failUserEdit(c, userID, userEditState{tab: tab, errors: messages})
}

func (s *Server) failUserEdit(c *gin.Context, userID string, state userEditState) {
	s.recordMutationFailure(c, "user", userEditAction(c))
	s.renderUserEdit(c, http.StatusOK, userID, state)
}

// renderUserEdit loads only the sections the principal may read. A user
// that disappeared in the meantime is a 404.
func (s *Server) renderUserEdit(c *gin.Context, status int, userID string, state userEditState) {
	can := s.userPermissions(c)
	data, err := s.userAdminSvc.GetUserEditPageData(c.Request.Context(), useradmindomain.UserEditPageDataRequest{
		UserID:             userID,
		IncludeUserTabData: can.ReadUsers,
		IncludeClaims:      can.ReadClaims,
		IncludeRoles:       can.ReadRoles,
		IncludeGrants:      can.ReadGrants,
		IncludeSessions:    can.ReadSessions,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if data == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	profile := data.Profile
	if state.profile != nil && state.profile.UserID != "" {
		profile = *state.profile
	}

	s.render(c, status, "user_edit", view{
		Title:  "Edit user",
		Errors: state.errors,
		Data: userEditPage{
			UserID:      data.Profile.UserID,
			Tab:         state.tab,
			Page:        data,
			Can:         can,
			Profile:     profile,
			FieldErrors: state.fieldErrors,
			IsSelf:      currentPrincipal(c).UserID == data.Profile.UserID,
		},
	})
}

func (s *Server) userPermissions(c *gin.Context) userPermissions {
	return userPermissions{
		ReadUsers:      s.allowed(c, authorization.UsersRead),
		WriteUsers:     s.allowed(c, authorization.UsersWrite),
		DeleteUsers:    s.allowed(c, authorization.UsersDelete),
		ReadClaims:     s.allowed(c, authorization.UserClaimsRead),
		WriteClaims:    s.allowed(c, authorization.UserClaimsWrite),
		DeleteClaims:   s.allowed(c, authorization.UserClaimsDelete),
		ReadRoles:      s.allowed(c, authorization.UserRolesRead),
		WriteRoles:     s.allowed(c, authorization.UserRolesWrite),
		DeleteRoles:    s.allowed(c, authorization.UserRolesDelete),
		ReadGrants:     s.allowed(c, authorization.UserGrantsRead),
		DeleteGrants:   s.allowed(c, authorization.UserGrantsDelete),
		ReadSessions:   s.allowed(c, authorization.UserSessionsRead) && s.sessionStore != nil,
		DeleteSessions: s.allowed(c, authorization.UserSessionsDelete) && s.sessionStore != nil,
	}
}

func userEditURL(userID, tab string) string {
	if tab == "" {
		return "/admin/users/" + userID
	}
	return "/admin/users/" + userID + "?tab=" + tab
}

func userEditAction(c *gin.Context) string {
	if action := c.GetString(contextUserEditAction); action != "" {
		return action
	}
	return "update"
}

// postedBool reports the value of a posted boolean field and whether the
// field was present at all.
func postedBool(c *gin.Context, field string) (bool, bool) {
	values, ok := c.Request.PostForm[field]
	if !ok || len(values) == 0 {
		return false, false
	}
	v, err := strconv.ParseBool(strings.TrimSpace(values[len(values)-1]))
	if err != nil {
		return false, true
	}
	return v, true
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
