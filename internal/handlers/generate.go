package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pixelmint/api/internal/service"
)

type generateRequest struct {
	Prompt string `json:"prompt"`
	Format string `json:"format"`
}

type generateResponse struct {
	Image            string  `json:"image"`
	UploadedURL      *string `json:"uploadedUrl"`
	RemainingCredits int     `json:"remainingCredits"`
}

func (h HandlerSet) GenerateImage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	allowed, err := h.limiter.Allow(c.Request.Context(), "generate:"+user.ID)
	if err != nil {
		h.log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
	} else if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too_many_requests"})
		return
	}

	result, err := h.generation.Generate(c.Request.Context(), service.GenerateInput{
		UserID: user.ID,
		Prompt: req.Prompt,
		Format: req.Format,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, generateResponse{
		Image:            result.Image,
		UploadedURL:      result.UploadedURL,
		RemainingCredits: result.RemainingCredits,
	})
}
