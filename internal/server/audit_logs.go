package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/idadmin/internal/audit/domain"
	"github.com/smallbiznis/idadmin/pkg/db/pagination"
)

type listAuditLogsQuery struct {
	pagination.Pagination
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
	ActorID    string `form:"actor_id"`
	StartAt    string `form:"start_at"`
	EndAt      string `form:"end_at"`
}

type auditPage struct {
	Query   listAuditLogsQuery
	Entries []auditdomain.AuditLog
	NextURL string
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startAt, err := parseOptionalTime(query.StartAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_start_at", "invalid start_at"))
		return
	}
	endAt, err := parseOptionalTime(query.EndAt, true)
	if err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_end_at", "invalid end_at"))
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
		ActorID:    strings.TrimSpace(query.ActorID),
		StartAt:    startAt,
		EndAt:      endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"data": resp.AuditLogs, "page_info": resp.PageInfo})
		return
	}

	page := auditPage{Query: query, Entries: resp.AuditLogs}
	if resp.HasMore && resp.NextPageToken != "" {
		page.NextURL = nextPageURL("/admin/audit", c.Request.URL.Query(), resp.NextPageToken)
	}
	s.render(c, http.StatusOK, "audit", view{Title: "Audit log", Data: page})
}

// nextPageURL keeps the current filters and swaps in the next token.
func nextPageURL(base string, current url.Values, token string) string {
	next := url.Values{}
	for k, v := range current {
		next[k] = v
	}
	next.Set("page_token", token)
	return base + "?" + next.Encode()
}
