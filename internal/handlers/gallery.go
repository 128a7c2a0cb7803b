package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type imageResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Prompt    string    `json:"prompt"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h HandlerSet) ListImages(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 12)

	result, err := h.gallery.ListImages(c.Request.Context(), user.ID, page, limit)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	images := make([]imageResponse, 0, len(result.Images))
	for _, img := range result.Images {
		images = append(images, imageResponse{
			ID:        img.ID,
			URL:       img.URL,
			Prompt:    img.Prompt,
			Width:     img.Width,
			Height:    img.Height,
			CreatedAt: img.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"images":     images,
		"total":      result.Total,
		"page":       result.Page,
		"totalPages": result.TotalPages,
		"hasMore":    result.HasMore,
	})
}

func (h HandlerSet) DeleteImage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	imageID := c.Param("id")
	if imageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image id required"})
		return
	}

	if err := h.gallery.DeleteImage(c.Request.Context(), user.ID, imageID); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
