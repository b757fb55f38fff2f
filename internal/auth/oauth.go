// Package auth signs users in through an OAuth provider and issues the
// tokens the rest of the API trusts.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"brewdrop_back_end/internal/models"

	"github.com/google/uuid"
	"github.com/markbates/goth"
	"golang.org/x/oauth2"
)

const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// Session is what a successful sign-in hands back to the app.
type Session struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Result of a sign-in attempt: Success, Cancelled or Failed.
type Result interface{ isResult() }

type Success struct{ Session Session }

// Cancelled means the user closed or declined the provider's page.
type Cancelled struct{}

type Failed struct{ Reason string }

func (Success) isResult()   {}
func (Cancelled) isResult() {}
func (Failed) isResult()    {}

// ProfileStore returns nil, nil from FindProfile for unknown users.
type ProfileStore interface {
	FindProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) error
}

// Exchanger turns the deep-link callback of an authorization code flow
// into a signed-in session.
type Exchanger struct {
	provider    string
	config      *oauth2.Config
	userInfoURL string
	profiles    ProfileStore
	issuer      *Issuer
}

func NewExchanger(provider string, cfg *oauth2.Config, userInfoURL string, profiles ProfileStore, issuer *Issuer) *Exchanger {
	if userInfoURL == "" {
		userInfoURL = GoogleUserInfoURL
	}
	return &Exchanger{provider: provider, config: cfg, userInfoURL: userInfoURL, profiles: profiles, issuer: issuer}
}

// AuthURL is where the app sends the user to start signing in.
func (e *Exchanger) AuthURL(state string) string {
	return e.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange runs code exchange, user lookup and profile upsert in order.
// It never returns an error: every outcome is a Result.
func (e *Exchanger) Exchange(ctx context.Context, callbackURL string) Result {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return Failed{Reason: "malformed callback url"}
	}
	q := u.Query()
	if q.Get("code") == "" && u.Fragment != "" {
		if fq, err := url.ParseQuery(u.Fragment); err == nil {
			q = fq
		}
	}

	if errCode := q.Get("error"); errCode != "" {
		if errCode == "access_denied" {
			log.Printf("⚠️ Sign-in cancelled by user")
			return Cancelled{}
		}
		reason := q.Get("error_description")
		if reason == "" {
			reason = errCode
		}
		return Failed{Reason: reason}
	}
	code := q.Get("code")
	if code == "" {
		return Failed{Reason: "missing authorization code"}
	}

	tok, err := e.config.Exchange(ctx, code)
	if err != nil {
		log.Printf("❌ OAuth code exchange: %v", err)
		return Failed{Reason: err.Error()}
	}
	info, err := e.fetchUser(ctx, tok)
	if err != nil {
		log.Printf("❌ OAuth user info: %v", err)
		return Failed{Reason: err.Error()}
	}

	s, err := e.signIn(ctx, e.provider, info)
	if err != nil {
		return Failed{Reason: err.Error()}
	}
	return Success{Session: *s}
}

// CompleteGoth signs in a user returned by the goth web flow.
func (e *Exchanger) CompleteGoth(ctx context.Context, u goth.User) (*Session, error) {
	return e.signIn(ctx, u.Provider, userInfo{
		Subject: u.UserID,
		Email:   u.Email,
		Name:    u.Name,
		Picture: u.AvatarURL,
	})
}

type userInfo struct {
	Subject string `json:"sub"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (e *Exchanger) fetchUser(ctx context.Context, tok *oauth2.Token) (userInfo, error) {
	var info userInfo
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.userInfoURL, nil)
	if err != nil {
		return info, err
	}
	res, err := e.config.Client(ctx, tok).Do(req)
	if err != nil {
		return info, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return info, fmt.Errorf("userinfo status %d: %s", res.StatusCode, body)
	}
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return info, err
	}
	if info.Subject == "" {
		info.Subject = info.ID
	}
	return info, nil
}

// UserID derives the stable id of a provider account.
func UserID(provider, subject string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(provider+":"+subject)).String()
}

func (e *Exchanger) signIn(ctx context.Context, provider string, info userInfo) (*Session, error) {
	if info.Subject == "" {
		return nil, errors.New("provider returned no user id")
	}
	userID := UserID(provider, info.Subject)

	p, err := e.profiles.FindProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if p == nil {
		p = &models.Profile{UserID: userID, Provider: provider}
	}
	if p.Name == "" {
		p.Name = info.Name
	}
	if info.Email != "" {
		p.Email = info.Email
	}
	if p.AvatarURL == "" {
		p.AvatarURL = info.Picture
	}
	p.UpdatedAt = time.Now()
	if err := e.profiles.UpsertProfile(ctx, *p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	token, err := e.issuer.Issue(userID, p.Email)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ %s signed in via %s", userID, provider)
	return &Session{Token: token, UserID: userID, Email: p.Email, Name: p.Name, Provider: provider}, nil
}
