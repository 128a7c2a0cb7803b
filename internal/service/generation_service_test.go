package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"pixelmint/api/internal/inference"
	"pixelmint/api/internal/models"
	"pixelmint/api/internal/repository"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 9, 9, 9}

type fakeCredits struct {
	balance int
	err     error
	reads   int
}

func (f *fakeCredits) CreditBalance(ctx context.Context, userID string) (int, error) {
	f.reads++
	return f.balance, f.err
}

type fakeImages struct {
	created   []models.Image
	chargeErr error
	remaining int
}

func (f *fakeImages) CreateWithCharge(ctx context.Context, image models.Image, cost int) (int, error) {
	if f.chargeErr != nil {
		return f.remaining, f.chargeErr
	}
	f.created = append(f.created, image)
	f.remaining -= cost
	return f.remaining, nil
}

type fakeStore struct {
	uploadErr error
	uploaded  map[string][]byte
	removed   []string
}

func (f *fakeStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if f.uploaded == nil {
		f.uploaded = map[string][]byte{}
	}
	f.uploaded[key] = data
	return "https://cdn.example/" + key, nil
}

func (f *fakeStore) Remove(ctx context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

type fakeGenerator struct {
	bytes []byte
	err   error
	calls int
	last  inference.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req inference.Request) ([]byte, error) {
	f.calls++
	f.last = req
	return f.bytes, f.err
}

func newTestService(credits *fakeCredits, images *fakeImages, store *fakeStore, gen *fakeGenerator) *GenerationService {
	return NewGenerationService(credits, images, store, gen, zerolog.Nop())
}

func TestGenerateSuccessChargesExactlyOnce(t *testing.T) {
	credits := &fakeCredits{balance: 1}
	images := &fakeImages{remaining: 1}
	store := &fakeStore{}
	gen := &fakeGenerator{bytes: pngBytes}

	result, err := newTestService(credits, images, store, gen).Generate(context.Background(), GenerateInput{
		UserID: "user-1",
		Prompt: "a red fox",
		Format: "square",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(images.created) != 1 {
		t.Fatalf("created %d images, want 1", len(images.created))
	}
	image := images.created[0]
	if image.Prompt != "a red fox" || image.UserID != "user-1" {
		t.Errorf("stored image = %+v", image)
	}
	if image.Width != 512 || image.Height != 512 {
		t.Errorf("square format produced %dx%d", image.Width, image.Height)
	}
	if result.RemainingCredits != 0 {
		t.Errorf("remaining = %d, want 0", result.RemainingCredits)
	}
	if result.UploadedURL == nil || !strings.HasPrefix(*result.UploadedURL, "https://cdn.example/") {
		t.Errorf("uploaded url = %v", result.UploadedURL)
	}
	if gen.calls != 1 {
		t.Errorf("provider called %d times, want 1", gen.calls)
	}

	wantInline := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	if result.Image != wantInline {
		t.Errorf("inline payload mismatch")
	}
}

func TestGenerateFormatDimensions(t *testing.T) {
	tests := []struct {
		format string
		width  int
		height int
	}{
		{"square", 512, 512},
		{"portrait", 512, 768},
		{"landscape", 768, 512},
		{"", 512, 512}, // defaults to square
	}

	for _, test := range tests {
		t.Run(test.format, func(t *testing.T) {
			gen := &fakeGenerator{bytes: pngBytes}
			_, err := newTestService(&fakeCredits{balance: 5}, &fakeImages{remaining: 5}, &fakeStore{}, gen).
				Generate(context.Background(), GenerateInput{UserID: "u", Prompt: "ok", Format: test.format})
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if gen.last.Width != test.width || gen.last.Height != test.height {
				t.Errorf("requested %dx%d, want %dx%d", gen.last.Width, gen.last.Height, test.width, test.height)
			}
		})
	}
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input GenerateInput
		field string
	}{
		{"empty_prompt", GenerateInput{UserID: "u", Prompt: ""}, "prompt"},
		{"whitespace_prompt", GenerateInput{UserID: "u", Prompt: "  a  "}, "prompt"},
		{"bad_format", GenerateInput{UserID: "u", Prompt: "a red fox", Format: "panorama"}, "format"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			gen := &fakeGenerator{bytes: pngBytes}
			credits := &fakeCredits{balance: 5}
			_, err := newTestService(credits, &fakeImages{remaining: 5}, &fakeStore{}, gen).
				Generate(context.Background(), test.input)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Issues[test.field]) == 0 {
				t.Errorf("no issue recorded for field %q: %v", test.field, verr.Issues)
			}
			if gen.calls != 0 {
				t.Error("provider called for invalid input")
			}
			if credits.reads != 0 {
				t.Error("balance read for invalid input")
			}
		})
	}
}

func TestGenerateInsufficientCreditsMakesNoProviderCall(t *testing.T) {
	gen := &fakeGenerator{bytes: pngBytes}
	images := &fakeImages{}
	_, err := newTestService(&fakeCredits{balance: 0}, images, &fakeStore{}, gen).
		Generate(context.Background(), GenerateInput{UserID: "u", Prompt: "a red fox"})

	var insufficient *InsufficientCreditsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientCreditsError, got %v", err)
	}
	if insufficient.Credits != 0 {
		t.Errorf("reported balance = %d, want 0", insufficient.Credits)
	}
	if gen.calls != 0 {
		t.Errorf("provider called %d times, want 0", gen.calls)
	}
	if len(images.created) != 0 {
		t.Error("image row created despite insufficient credits")
	}
}

func TestGenerateUserNotFound(t *testing.T) {
	_, err := newTestService(&fakeCredits{err: repository.ErrUserNotFound}, &fakeImages{}, &fakeStore{}, &fakeGenerator{}).
		Generate(context.Background(), GenerateInput{UserID: "ghost", Prompt: "a red fox"})
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGenerateUploadFailureIsPreviewOnly(t *testing.T) {
	images := &fakeImages{remaining: 3}
	store := &fakeStore{uploadErr: errors.New("blob storage down")}

	result, err := newTestService(&fakeCredits{balance: 3}, images, store, &fakeGenerator{bytes: pngBytes}).
		Generate(context.Background(), GenerateInput{UserID: "u", Prompt: "a red fox"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if result.UploadedURL != nil {
		t.Error("uploaded url set despite failed upload")
	}
	if result.Image == "" {
		t.Error("inline image missing from preview-only result")
	}
	if result.RemainingCredits != 3 {
		t.Errorf("remaining = %d, want unchanged 3", result.RemainingCredits)
	}
	if len(images.created) != 0 {
		t.Error("image row created despite failed upload")
	}
}

func TestGenerateProviderErrorPropagates(t *testing.T) {
	images := &fakeImages{remaining: 2}
	store := &fakeStore{}

	_, err := newTestService(&fakeCredits{balance: 2}, images, store, &fakeGenerator{err: inference.ErrProviderStatus}).
		Generate(context.Background(), GenerateInput{UserID: "u", Prompt: "a red fox"})
	if !errors.Is(err, inference.ErrProviderStatus) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if len(images.created) != 0 || len(store.uploaded) != 0 {
		t.Error("side effects recorded after provider failure")
	}
}

func TestGenerateChargeRaceCleansUpObject(t *testing.T) {
	// Balance passes the fast check but a concurrent request wins the
	// conditional decrement.
	images := &fakeImages{chargeErr: repository.ErrInsufficientCredits, remaining: 0}
	store := &fakeStore{}

	_, err := newTestService(&fakeCredits{balance: 1}, images, store, &fakeGenerator{bytes: pngBytes}).
		Generate(context.Background(), GenerateInput{UserID: "u", Prompt: "a red fox"})

	var insufficient *InsufficientCreditsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientCreditsError, got %v", err)
	}
	if len(store.removed) != 1 {
		t.Errorf("uploaded object not cleaned up: removed=%v", store.removed)
	}
}
