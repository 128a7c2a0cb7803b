package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pixelmint/api/internal/models"
	"pixelmint/api/internal/pricing"
)

func (h HandlerSet) CheckCredits(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	status, err := h.credits.Check(c.Request.Context(), user.ID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"credits":         status.Credits,
		"canGenerate":     status.CanGenerate,
		"creditsPerImage": status.CreditsPerImage,
	})
}

func (h HandlerSet) ConsumeCredits(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	remaining, err := h.credits.Consume(c.Request.Context(), user.ID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"remainingCredits": remaining,
		"consumed":         pricing.CreditsPerImage,
	})
}

type ledgerEntryResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Delta        int       `json:"delta"`
	BalanceAfter int       `json:"balanceAfter"`
	Kind         string    `json:"kind"`
	Reason       *string   `json:"reason,omitempty"`
	ActorID      *string   `json:"actorId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toLedgerResponses(entries []models.CreditEntry) []ledgerEntryResponse {
	resp := make([]ledgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, ledgerEntryResponse{
			ID:           entry.ID,
			UserID:       entry.UserID,
			Delta:        entry.Delta,
			BalanceAfter: entry.BalanceAfter,
			Kind:         string(entry.Kind),
			Reason:       entry.Reason,
			ActorID:      entry.ActorID,
			CreatedAt:    entry.CreatedAt,
		})
	}
	return resp
}

func (h HandlerSet) CreditHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	page, err := h.credits.History(c.Request.Context(), user.ID, queryInt(c, "page", 1), queryInt(c, "limit", 12))
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

type creditPackResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Credits        int     `json:"credits"`
	Price          int     `json:"price"`
	Description    string  `json:"description"`
	Popular        bool    `json:"popular"`
	PricePerCredit float64 `json:"pricePerCredit"`
}

func (h HandlerSet) ListCreditPacks(c *gin.Context) {
	packs := make([]creditPackResponse, 0, len(pricing.CreditPacks))
	for _, pack := range pricing.CreditPacks {
		packs = append(packs, creditPackResponse{
			ID:             pack.ID,
			Name:           pack.Name,
			Credits:        pack.Credits,
			Price:          pack.Price,
			Description:    pack.Description,
			Popular:        pack.Popular,
			PricePerCredit: pricing.PricePerCredit(pack),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"packs":             packs,
		"freeSignupCredits": pricing.FreeSignupCredits,
		"creditsPerImage":   pricing.CreditsPerImage,
	})
}
