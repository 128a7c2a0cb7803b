package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"pixelmint/api/internal/ids"
	"pixelmint/api/internal/inference"
	"pixelmint/api/internal/media/sniffer"
	"pixelmint/api/internal/models"
	"pixelmint/api/internal/pricing"
	"pixelmint/api/internal/repository"
)

type dimensions struct {
	Width  int
	Height int
}

var formatDimensions = map[string]dimensions{
	"square":    {Width: 512, Height: 512},
	"portrait":  {Width: 512, Height: 768},
	"landscape": {Width: 768, Height: 512},
}

const defaultFormat = "square"

type creditReader interface {
	CreditBalance(ctx context.Context, userID string) (int, error)
}

type imageCharger interface {
	CreateWithCharge(ctx context.Context, image models.Image, cost int) (int, error)
}

type objectUploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

type imageGenerator interface {
	Generate(ctx context.Context, req inference.Request) ([]byte, error)
}

// GenerationService is the credit-gated orchestrator: validate, gate, call
// the provider once, store the result, and charge inside one transaction.
type GenerationService struct {
	credits   creditReader
	images    imageCharger
	store     objectUploader
	generator imageGenerator
	log       zerolog.Logger
}

func NewGenerationService(credits creditReader, images imageCharger, store objectUploader, generator imageGenerator, log zerolog.Logger) *GenerationService {
	return &GenerationService{
		credits:   credits,
		images:    images,
		store:     store,
		generator: generator,
		log:       log,
	}
}

type GenerateInput struct {
	UserID string
	Prompt string
	Format string
}

type GenerateResult struct {
	// Image is the inline data URL, always populated on success so the
	// caller can render even when the upload failed.
	Image string
	// UploadedURL is nil when storage rejected the upload; in that case
	// nothing was persisted and nothing was charged.
	UploadedURL      *string
	RemainingCredits int
}

func (s *GenerationService) Generate(ctx context.Context, input GenerateInput) (GenerateResult, error) {
	prompt, format, err := validateGenerateInput(input)
	if err != nil {
		return GenerateResult{}, err
	}

	balance, err := s.credits.CreditBalance(ctx, input.UserID)
	if err != nil {
		return GenerateResult{}, err
	}
	// Fast path only; the authoritative gate is the conditional decrement
	// inside the charge transaction.
	if balance < pricing.CreditsPerImage {
		return GenerateResult{}, &InsufficientCreditsError{Credits: balance}
	}

	dims := formatDimensions[format]
	raw, err := s.generator.Generate(ctx, inference.Request{
		Prompt: prompt,
		Width:  dims.Width,
		Height: dims.Height,
	})
	if err != nil {
		return GenerateResult{}, err
	}

	media, err := sniffer.DetectHead(raw)
	if err != nil {
		// Providers occasionally return raw bytes without a magic header
		// we know; the pipeline always requests PNG.
		media = sniffer.Result{Type: sniffer.TypePNG, MIME: "image/png"}
	}

	inline := fmt.Sprintf("data:%s;base64,%s", media.MIME, base64.StdEncoding.EncodeToString(raw))
	key := objectKey(string(media.Type))

	uploadedURL, uploadErr := s.store.Upload(ctx, key, raw, media.MIME)
	if uploadErr != nil {
		// Preview-only policy: the caller still gets the image inline but
		// no row is written and no credit is consumed.
		s.log.Warn().Err(uploadErr).Str("user_id", input.UserID).Msg("storage upload failed, returning preview only")

		remaining, err := s.credits.CreditBalance(ctx, input.UserID)
		if err != nil {
			remaining = balance
		}
		return GenerateResult{
			Image:            inline,
			UploadedURL:      nil,
			RemainingCredits: remaining,
		}, nil
	}

	image := models.Image{
		ID:        ids.New(),
		UserID:    input.UserID,
		URL:       uploadedURL,
		Prompt:    prompt,
		ObjectKey: key,
		Width:     dims.Width,
		Height:    dims.Height,
		SizeBytes: int64(len(raw)),
	}

	remaining, err := s.images.CreateWithCharge(ctx, image, pricing.CreditsPerImage)
	if err != nil {
		if removeErr := s.store.Remove(ctx, key); removeErr != nil {
			s.log.Warn().Err(removeErr).Str("object_key", key).Msg("orphaned object cleanup failed")
		}
		if errors.Is(err, repository.ErrInsufficientCredits) {
			return GenerateResult{}, &InsufficientCreditsError{Credits: remaining}
		}
		return GenerateResult{}, err
	}

	return GenerateResult{
		Image:            inline,
		UploadedURL:      &uploadedURL,
		RemainingCredits: remaining,
	}, nil
}

func validateGenerateInput(input GenerateInput) (string, string, error) {
	issues := map[string][]string{}

	prompt := strings.TrimSpace(input.Prompt)
	if utf8.RuneCountInString(prompt) < 2 {
		issues["prompt"] = append(issues["prompt"], "prompt must be at least 2 characters")
	}

	format := input.Format
	if format == "" {
		format = defaultFormat
	}
	if _, ok := formatDimensions[format]; !ok {
		issues["format"] = append(issues["format"], "format must be one of square, portrait, landscape")
	}

	if len(issues) > 0 {
		return "", "", &ValidationError{Issues: issues}
	}
	return prompt, format, nil
}

func objectKey(ext string) string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%d-%s.%s", time.Now().UnixMilli(), hex.EncodeToString(suffix), ext)
}
