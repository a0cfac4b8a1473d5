package server

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
)

const msgSelectUser = "Please select a user"

type rolesPage struct {
	Roles []identitydomain.Role
}

type roleEditPage struct {
	Role           identitydomain.Role
	UsersInRole    []identitydomain.User
	AvailableUsers []identitydomain.User
	FieldErrors    map[string]string
}

type roleMemberForm struct {
	SelectedUserID string `form:"selected_user_id"`
}

func (s *Server) ListRoles(c *gin.Context) {
	roles, err := s.roles.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sort.SliceStable(roles, func(i, j int) bool {
		return roles[i].Name < roles[j].Name
	})
	s.render(c, http.StatusOK, "roles", view{Title: "Roles", Data: rolesPage{Roles: roles}})
}

func (s *Server) EditRolePage(c *gin.Context) {
	role, ok := s.loadRole(c)
	if !ok {
		return
	}
	s.renderRoleEdit(c, http.StatusOK, role, nil, nil)
}

func (s *Server) AddUserToRole(c *gin.Context) {
	s.changeRoleMembership(c, "add_user")
}

func (s *Server) RemoveUserFromRole(c *gin.Context) {
	s.changeRoleMembership(c, "remove_user")
}

func (s *Server) changeRoleMembership(c *gin.Context, action string) {
	role, ok := s.loadRole(c)
	if !ok {
		return
	}

	var form roleMemberForm
	if err := c.ShouldBind(&form); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID := strings.TrimSpace(form.SelectedUserID)
	if userID == "" {
		s.recordMutationFailure(c, "role", action)
		s.renderRoleEdit(c, http.StatusOK, role, map[string]string{"selected_user_id": msgSelectUser}, nil)
		return
	}

	ctx := c.Request.Context()
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if user == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var message string
	if action == "add_user" {
		err = s.users.AddToRole(ctx, user, role.Name)
		message = fmt.Sprintf("User '%s' added to role '%s'", user.UserName, role.Name)
	} else {
		err = s.users.RemoveFromRole(ctx, user, role.Name)
		message = fmt.Sprintf("User '%s' removed from role '%s'", user.UserName, role.Name)
	}
	if err != nil {
		if errs, ok := identitydomain.AsErrors(err); ok {
			s.recordMutationFailure(c, "role", action)
			s.renderRoleEdit(c, http.StatusOK, role, nil, identityMessages(errs))
			return
		}
		AbortWithError(c, err)
		return
	}

	s.recordMutation(c, "role", action, role.ID, map[string]any{
		"role":    role.Name,
		"user_id": user.ID,
	})
	s.redirectWithFlash(c, "/admin/roles/"+role.ID, message)
}

func (s *Server) loadRole(c *gin.Context) (*identitydomain.Role, bool) {
	roleID := strings.TrimSpace(c.Param("roleId"))
	if roleID == "" {
		AbortWithError(c, ErrNotFound)
		return nil, false
	}
	role, err := s.roles.FindByID(c.Request.Context(), roleID)
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	if role == nil {
		AbortWithError(c, ErrNotFound)
		return nil, false
	}
	return role, true
}

// renderRoleEdit lists the members of role and every other user as a
// candidate, both ordered by user name.
func (s *Server) renderRoleEdit(c *gin.Context, status int, role *identitydomain.Role, fieldErrs map[string]string, errs []string) {
	ctx := c.Request.Context()
	members, err := s.users.UsersInRole(ctx, role.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	all, err := s.users.ListAll(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	memberIDs := make(map[string]struct{}, len(members))
	for _, u := range members {
		memberIDs[u.ID] = struct{}{}
	}
	available := make([]identitydomain.User, 0, len(all))
	for _, u := range all {
		if _, ok := memberIDs[u.ID]; !ok {
			available = append(available, u)
		}
	}
	sortUsersByName(members)
	sortUsersByName(available)

	s.render(c, status, "role_edit", view{
		Title:  "Role " + role.Name,
		Errors: errs,
		Data: roleEditPage{
			Role:           *role,
			UsersInRole:    members,
			AvailableUsers: available,
			FieldErrors:    fieldErrs,
		},
	})
}

func sortUsersByName(users []identitydomain.User) {
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].UserName < users[j].UserName
	})
}
