package server

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/idadmin/internal/audit/masking"
	clientdomain "github.com/smallbiznis/idadmin/internal/client/domain"
)

const msgClientUpdated = "Client updated successfully"

type clientsPage struct {
	Clients []clientdomain.ClientSummary
}

type clientEditPage struct {
	Action      string
	Form        clientdomain.ClientEditViewModel
	FieldErrors map[string]string
}

func (s *Server) ListClients(c *gin.Context) {
	clients, err := s.clientSvc.ListClients(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sort.SliceStable(clients, func(i, j int) bool {
		return clients[i].ClientName < clients[j].ClientName
	})
	s.render(c, http.StatusOK, "clients", view{Title: "Clients", Data: clientsPage{Clients: clients}})
}

func (s *Server) EditClientPage(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	vm, err := s.clientSvc.GetClientForEdit(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.renderClientEdit(c, *vm, nil)
}

// EditClient dispatches the edit form. Row-editing handlers only reshape the
// posted lists and re-render; nothing is saved until the save handler runs.
func (s *Server) EditClient(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var vm clientdomain.ClientEditViewModel
	if err := c.ShouldBind(&vm); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	normalizeLists(&vm)

	handler := strings.TrimSpace(c.PostForm("handler"))
	if handler == "" {
		handler = strings.TrimSpace(c.Query("handler"))
	}
	index := rowIndex(c)

	switch handler {
	case "", "save":
		s.saveClient(c, id, vm)
		return
	case "add-redirect-uri":
		vm.RedirectURIs = append(vm.RedirectURIs, "")
	case "remove-redirect-uri":
		vm.RedirectURIs = removeAt(vm.RedirectURIs, index)
	case "add-post-logout-redirect-uri":
		vm.PostLogoutRedirectURIs = append(vm.PostLogoutRedirectURIs, "")
	case "remove-post-logout-redirect-uri":
		vm.PostLogoutRedirectURIs = removeAt(vm.PostLogoutRedirectURIs, index)
	case "add-allowed-scope":
		vm.AllowedScopes = append(vm.AllowedScopes, "")
	case "remove-allowed-scope":
		vm.AllowedScopes = removeAt(vm.AllowedScopes, index)
	case "add-grant-type":
		vm.AllowedGrantTypes = append(vm.AllowedGrantTypes, "")
	case "remove-grant-type":
		vm.AllowedGrantTypes = removeAt(vm.AllowedGrantTypes, index)
	default:
		AbortWithError(c, ErrNotFound)
		return
	}

	s.renderClientEdit(c, vm, nil)
}

func (s *Server) saveClient(c *gin.Context, id snowflake.ID, vm clientdomain.ClientEditViewModel) {
	if errs := vm.Validate(); len(errs) > 0 {
		s.recordMutationFailure(c, "client", "update")
		s.renderClientEdit(c, vm, clientFieldErrors(errs))
		return
	}

	found, err := s.clientSvc.UpdateClient(c.Request.Context(), id, vm)
	if !found && err == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	if err != nil {
		if errors.Is(err, clientdomain.ErrDuplicateClientID) {
			s.recordMutationFailure(c, "client", "update")
			s.renderClientEdit(c, vm, map[string]string{
				"client_id": fmt.Sprintf("Client ID '%s' is already in use.", strings.TrimSpace(vm.ClientID)),
			})
			return
		}
		AbortWithError(c, err)
		return
	}

	s.recordMutation(c, "client", "update", id.String(), masking.Redact(map[string]any{
		"client_id":  strings.TrimSpace(vm.ClientID),
		"new_secret": vm.NewSecret,
	}, "new_secret"))
	s.redirectWithFlash(c, "/admin/clients/"+id.String(), msgClientUpdated)
}

// renderClientEdit shows the form with the scope and grant type catalogues
// filled in. The new secret is never echoed back.
func (s *Server) renderClientEdit(c *gin.Context, vm clientdomain.ClientEditViewModel, fieldErrs map[string]string) {
	if err := s.clientSvc.PopulateAvailableOptions(c.Request.Context(), &vm); err != nil {
		AbortWithError(c, err)
		return
	}
	vm.NewSecret = ""
	s.render(c, http.StatusOK, "client_edit", view{
		Title: "Edit client",
		Data: clientEditPage{
			Action:      c.Request.URL.Path,
			Form:        vm,
			FieldErrors: fieldErrs,
		},
	})
}

// normalizeLists turns absent list fields into empty lists.
func normalizeLists(vm *clientdomain.ClientEditViewModel) {
	for _, list := range []*[]string{&vm.AllowedGrantTypes, &vm.RedirectURIs, &vm.PostLogoutRedirectURIs, &vm.AllowedScopes} {
		if *list == nil {
			*list = []string{}
		}
	}
}

func rowIndex(c *gin.Context) int {
	raw := c.Query("index")
	if raw == "" {
		raw = c.PostForm("index")
	}
	index, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return -1
	}
	return index
}

// removeAt drops values[index]; out-of-range indexes leave the list as is.
func removeAt(values []string, index int) []string {
	if index < 0 || index >= len(values) {
		return values
	}
	out := make([]string, 0, len(values)-1)
	out = append(out, values[:index]...)
	return append(out, values[index+1:]...)
}
