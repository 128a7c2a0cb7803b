package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"pixelmint/api/internal/ids"
	"pixelmint/api/internal/models"
	"pixelmint/api/internal/pricing"
	"pixelmint/api/internal/repository"
)

var (
	ErrUnknownProvider   = errors.New("unknown social provider")
	ErrInvalidOAuthState = errors.New("invalid or expired oauth state")
	ErrNoProviderEmail   = errors.New("provider did not share an email address")
)

type oauthStateStore interface {
	Issue(ctx context.Context, provider string) (string, error)
	Consume(ctx context.Context, provider string, state string) (bool, error)
}

type socialProfile struct {
	Email     string
	Name      string
	AvatarURL string
}

type oauthProvider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
}

func (s *AuthService) providerFor(name string) (*oauthProvider, error) {
	switch strings.ToLower(name) {
	case "github":
		return &oauthProvider{
			name: "github",
			config: &oauth2.Config{
				ClientID:     s.cfg.OAuth.GitHub.ClientID,
				ClientSecret: s.cfg.OAuth.GitHub.ClientSecret,
				RedirectURL:  s.cfg.OAuth.GitHub.RedirectURL,
				Scopes:       []string{"read:user", "user:email"},
				Endpoint:     github.Endpoint,
			},
			userInfoURL: "https://api.github.com/user",
		}, nil
	case "google":
		return &oauthProvider{
			name: "google",
			config: &oauth2.Config{
				ClientID:     s.cfg.OAuth.Google.ClientID,
				ClientSecret: s.cfg.OAuth.Google.ClientSecret,
				RedirectURL:  s.cfg.OAuth.Google.RedirectURL,
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     google.Endpoint,
			},
			userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		}, nil
	default:
		return nil, ErrUnknownProvider
	}
}

// SocialStart returns the provider authorize URL with a single-use state.
func (s *AuthService) SocialStart(ctx context.Context, providerName string) (string, error) {
	provider, err := s.providerFor(providerName)
	if err != nil {
		return "", err
	}

	state, err := s.states.Issue(ctx, provider.name)
	if err != nil {
		return "", err
	}
	return provider.config.AuthCodeURL(state), nil
}

type SocialCallbackInput struct {
	Provider   string
	Code       string
	State      string
	DeviceName string
	IPAddress  string
	UserAgent  string
}

// SocialCallback exchanges the code, resolves the profile email, upserts the
// account (with the signup bonus on first sight) and opens a session.
func (s *AuthService) SocialCallback(ctx context.Context, input SocialCallbackInput) (AuthResult, error) {
	provider, err := s.providerFor(input.Provider)
	if err != nil {
		return AuthResult{}, err
	}

	ok, err := s.states.Consume(ctx, provider.name, input.State)
	if err != nil {
		return AuthResult{}, err
	}
	if !ok {
		return AuthResult{}, ErrInvalidOAuthState
	}

	token, err := provider.config.Exchange(ctx, input.Code)
	if err != nil {
		return AuthResult{}, fmt.Errorf("exchange code: %w", err)
	}

	profile, err := fetchProfile(ctx, provider, token)
	if err != nil {
		return AuthResult{}, err
	}

	user, err := s.upsertSocialUser(ctx, profile)
	if err != nil {
		return AuthResult{}, err
	}

	deviceName := input.DeviceName
	if deviceName == "" {
		deviceName = provider.name + " login"
	}
	return s.createSession(ctx, user, ids.New(), deviceName, input.IPAddress, input.UserAgent)
}

func (s *AuthService) upsertSocialUser(ctx context.Context, profile socialProfile) (models.User, error) {
	email := strings.TrimSpace(strings.ToLower(profile.Email))
	if email == "" {
		return models.User{}, ErrNoProviderEmail
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, err
	}

	displayName := strings.TrimSpace(profile.Name)
	if displayName == "" {
		displayName = email
	}

	var avatarURL *string
	if profile.AvatarURL != "" {
		avatarURL = &profile.AvatarURL
	}

	user = models.User{
		ID:          ids.New(),
		Email:       email,
		DisplayName: displayName,
		Role:        models.UserRoleStandard,
		Credits:     pricing.FreeSignupCredits,
		AvatarURL:   avatarURL,
	}
	if err := s.users.Create(ctx, user, pricing.FreeSignupCredits); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func fetchProfile(ctx context.Context, provider *oauthProvider, token *oauth2.Token) (socialProfile, error) {
	client := provider.config.Client(ctx, token)
	client.Timeout = 15 * time.Second

	var profile socialProfile
	switch provider.name {
	case "github":
		var info struct {
			Login     string `json:"login"`
			Name      string `json:"name"`
			Email     string `json:"email"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := getJSON(ctx, client, provider.userInfoURL, &info); err != nil {
			return socialProfile{}, err
		}
		profile = socialProfile{Email: info.Email, Name: info.Name, AvatarURL: info.AvatarURL}
		if profile.Name == "" {
			profile.Name = info.Login
		}
		if profile.Email == "" {
			// Profile email can be private; the emails endpoint lists
			// verified addresses.
			email, err := fetchGitHubPrimaryEmail(ctx, client)
			if err != nil {
				return socialProfile{}, err
			}
			profile.Email = email
		}
	case "google":
		var info struct {
			Email   string `json:"email"`
			Name    string `json:"name"`
			Picture string `json:"picture"`
		}
		if err := getJSON(ctx, client, provider.userInfoURL, &info); err != nil {
			return socialProfile{}, err
		}
		profile = socialProfile{Email: info.Email, Name: info.Name, AvatarURL: info.Picture}
	default:
		return socialProfile{}, ErrUnknownProvider
	}

	return profile, nil
}

func fetchGitHubPrimaryEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", ErrNoProviderEmail
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fetch %s: status %d: %s", url, resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
