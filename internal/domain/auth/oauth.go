package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var ErrOAuthState = errors.New("oauth state mismatch")

// GoogleOAuth runs the authorization-code flow against Google. State values
// are short-lived signed tokens so no server-side storage is needed.
type GoogleOAuth struct {
	config      *oauth2.Config
	secret      string
	userInfoURL string
}

func NewGoogleOAuth(clientID, clientSecret, redirectURL, stateSecret string) *GoogleOAuth {
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email"},
			Endpoint:     google.Endpoint,
		},
		secret:      stateSecret,
		userInfoURL: googleUserInfoURL,
	}
}

// AuthURL returns the consent URL and the state to keep in a cookie.
func (g *GoogleOAuth) AuthURL() (string, string, error) {
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "oauth-state",
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
	}).SignedString([]byte(g.secret))
	if err != nil {
		return "", "", err
	}
	return g.config.AuthCodeURL(state), state, nil
}

func (g *GoogleOAuth) checkState(state, cookie string) error {
	if state == "" || state != cookie {
		return ErrOAuthState
	}
	_, err := jwt.ParseWithClaims(state, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(g.secret), nil
	}, jwt.WithSubject("oauth-state"))
	if err != nil {
		return ErrOAuthState
	}
	return nil
}

// Email exchanges the code and returns the verified account email.
func (g *GoogleOAuth) Email(ctx context.Context, code, state, cookieState string) (string, error) {
	if err := g.checkState(state, cookieState); err != nil {
		return "", err
	}
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("oauth exchange: %w", err)
	}
	resp, err := g.config.Client(ctx, token).Get(g.userInfoURL)
	if err != nil {
		return "", fmt.Errorf("oauth userinfo: %w", err)
	}
	defer resp.Body.Close()

	var info struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("oauth userinfo decode: %w", err)
	}
	if info.Email == "" || !info.VerifiedEmail {
		return "", errors.New("oauth account has no verified email")
	}
	return info.Email, nil
}
