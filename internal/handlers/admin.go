package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(c, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	search := strings.TrimSpace(c.Query("search"))

	users, total, err := h.users.List(c.Request.Context(), search, limit, (page-1)*limit)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, toUserResponse(user))
	}

	c.JSON(http.StatusOK, gin.H{
		"users": resp,
		"total": total,
		"page":  page,
	})
}

type grantCreditsRequest struct {
	UserID  string  `json:"userId" binding:"required"`
	Credits int     `json:"credits" binding:"required"`
	Reason  *string `json:"reason"`
}

func (h HandlerSet) AdminGrantCredits(c *gin.Context) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}

	var req grantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.credits.Grant(c.Request.Context(), admin.ID, req.UserID, req.Credits, req.Reason)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.log.Info().
		Str("admin_id", admin.ID).
		Str("user_id", user.ID).
		Int("credits", req.Credits).
		Msg("credits granted")

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

func (h HandlerSet) AdminCreditLedger(c *gin.Context) {
	page, err := h.credits.GlobalLedger(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "limit", 20))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": toLedgerResponses(page.Entries),
		"total":   page.Total,
		"page":    page.Page,
		"hasMore": page.HasMore,
	})
}
