package service

import (
	"context"

	"github.com/rs/zerolog"

	"pixelmint/api/internal/models"
)

const (
	defaultPageSize = 12
	maxPageSize     = 50
)

type imageStore interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Image, int, error)
	DeleteOwned(ctx context.Context, imageID string, userID string) (models.Image, error)
}

type objectRemover interface {
	Remove(ctx context.Context, key string) error
}

type GalleryService struct {
	images imageStore
	store  objectRemover
	log    zerolog.Logger
}

func NewGalleryService(images imageStore, store objectRemover, log zerolog.Logger) *GalleryService {
	return &GalleryService{
		images: images,
		store:  store,
		log:    log,
	}
}

type ImagePage struct {
	Images     []models.Image
	Total      int
	Page       int
	TotalPages int
	HasMore    bool
}

func (s *GalleryService) ListImages(ctx context.Context, userID string, page, limit int) (ImagePage, error) {
	page, limit = normalizePage(page, limit)

	images, total, err := s.images.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return ImagePage{}, err
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	return ImagePage{
		Images:     images,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		HasMore:    page*limit < total,
	}, nil
}

// DeleteImage removes the row only when the caller owns it; the stored
// object is cleaned up best effort afterwards. Non-owners get the same
// not-found error as a missing id.
func (s *GalleryService) DeleteImage(ctx context.Context, userID string, imageID string) error {
	image, err := s.images.DeleteOwned(ctx, imageID, userID)
	if err != nil {
		return err
	}

	if image.ObjectKey != "" {
		if err := s.store.Remove(ctx, image.ObjectKey); err != nil {
			s.log.Warn().Err(err).Str("image_id", imageID).Str("object_key", image.ObjectKey).Msg("stored object removal failed")
		}
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}
