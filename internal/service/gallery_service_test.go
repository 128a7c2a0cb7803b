package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"pixelmint/api/internal/models"
	"pixelmint/api/internal/repository"
)

type fakeImageStore struct {
	images []models.Image
}

func (f *fakeImageStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Image, int, error) {
	var owned []models.Image
	for _, img := range f.images {
		if img.UserID == userID {
			owned = append(owned, img)
		}
	}
	total := len(owned)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return owned[offset:end], total, nil
}

func (f *fakeImageStore) DeleteOwned(ctx context.Context, imageID string, userID string) (models.Image, error) {
	for i, img := range f.images {
		if img.ID == imageID && img.UserID == userID {
			f.images = append(f.images[:i], f.images[i+1:]...)
			return img, nil
		}
	}
	return models.Image{}, repository.ErrImageNotFound
}

type fakeRemover struct {
	removed []string
}

func (f *fakeRemover) Remove(ctx context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

func seedImages(userID string, n int) []models.Image {
	images := make([]models.Image, n)
	for i := range images {
		images[i] = models.Image{
			ID:        fmt.Sprintf("img-%s-%d", userID, i),
			UserID:    userID,
			ObjectKey: fmt.Sprintf("key-%d", i),
		}
	}
	return images
}

func TestListImagesPagination(t *testing.T) {
	store := &fakeImageStore{images: seedImages("u1", 30)}
	svc := NewGalleryService(store, &fakeRemover{}, zerolog.Nop())

	tests := []struct {
		name       string
		page       int
		limit      int
		wantCount  int
		wantPage   int
		wantMore   bool
		totalPages int
	}{
		{"first_page_defaults", 0, 0, 12, 1, true, 3},
		{"middle_page", 2, 12, 12, 2, true, 3},
		{"last_page", 3, 12, 6, 3, false, 3},
		{"past_end", 4, 12, 0, 4, false, 3},
		{"limit_clamped", 1, 100, 30, 1, false, 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			page, err := svc.ListImages(context.Background(), "u1", test.page, test.limit)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(page.Images) != test.wantCount {
				t.Errorf("items = %d, want %d", len(page.Images), test.wantCount)
			}
			if page.Page != test.wantPage {
				t.Errorf("page = %d, want %d", page.Page, test.wantPage)
			}
			if page.HasMore != test.wantMore {
				t.Errorf("hasMore = %v, want %v", page.HasMore, test.wantMore)
			}
			if page.Total != 30 {
				t.Errorf("total = %d, want 30", page.Total)
			}
			if page.TotalPages != test.totalPages {
				t.Errorf("totalPages = %d, want %d", page.TotalPages, test.totalPages)
			}
		})
	}
}

func TestListImagesOnlyOwn(t *testing.T) {
	images := append(seedImages("u1", 3), seedImages("u2", 5)...)
	svc := NewGalleryService(&fakeImageStore{images: images}, &fakeRemover{}, zerolog.Nop())

	page, err := svc.ListImages(context.Background(), "u1", 1, 12)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("total = %d, want 3", page.Total)
	}
	for _, img := range page.Images {
		if img.UserID != "u1" {
			t.Errorf("foreign image leaked: %s", img.ID)
		}
	}
}

func TestDeleteImageOwner(t *testing.T) {
	store := &fakeImageStore{images: seedImages("u1", 2)}
	remover := &fakeRemover{}
	svc := NewGalleryService(store, remover, zerolog.Nop())

	if err := svc.DeleteImage(context.Background(), "u1", "img-u1-0"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.images) != 1 {
		t.Errorf("images left = %d, want 1", len(store.images))
	}
	if len(remover.removed) != 1 || remover.removed[0] != "key-0" {
		t.Errorf("object removal = %v", remover.removed)
	}
}

func TestDeleteImageNonOwnerIndistinguishable(t *testing.T) {
	store := &fakeImageStore{images: seedImages("u1", 1)}
	svc := NewGalleryService(store, &fakeRemover{}, zerolog.Nop())

	foreignErr := svc.DeleteImage(context.Background(), "u2", "img-u1-0")
	missingErr := svc.DeleteImage(context.Background(), "u2", "does-not-exist")

	if !errors.Is(foreignErr, repository.ErrImageNotFound) {
		t.Fatalf("non-owner delete: %v", foreignErr)
	}
	if !errors.Is(missingErr, repository.ErrImageNotFound) {
		t.Fatalf("missing delete: %v", missingErr)
	}
	if foreignErr.Error() != missingErr.Error() {
		t.Error("non-owner and missing errors are distinguishable")
	}
	if len(store.images) != 1 {
		t.Error("image deleted by non-owner")
	}
}
