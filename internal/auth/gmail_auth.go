package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/justsurfingit/applytrail/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// ErrCredentialRejected is returned when the provider refuses a refresh token
// (revoked, expired or issued to another client). The user has to reconnect the mailbox.
var ErrCredentialRejected = errors.New("refresh credential rejected by provider")

// ErrMissingRefreshToken is returned when no refresh token is supplied.
var ErrMissingRefreshToken = errors.New("refresh credential is missing")

// Credentials is a short-lived, read-only mailbox credential.
type Credentials struct {
	Token  *oauth2.Token
	Client *http.Client
}

// CredentialSupplier trades a long-lived refresh token for a read-only Gmail access token.
type CredentialSupplier struct {
	config *oauth2.Config
	// base is handed to the oauth2 exchange; tests point it at a fake token endpoint.
	base *http.Client
}

// NewCredentialSupplier builds a supplier for the configured Google OAuth client.
func NewCredentialSupplier(cfg *config.Config) *CredentialSupplier {
	g := cfg.GetGoogle()
	return NewCredentialSupplierWithConfig(&oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		RedirectURL:  g.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}, nil)
}

// NewCredentialSupplierWithConfig uses an explicit OAuth config and base HTTP client.
func NewCredentialSupplierWithConfig(oc *oauth2.Config, base *http.Client) *CredentialSupplier {
	return &CredentialSupplier{config: oc, base: base}
}

// Resolve refreshes the access token eagerly so that a revoked credential is
// reported here rather than on the first mailbox call.
func (s *CredentialSupplier) Resolve(ctx context.Context, refreshToken string) (*Credentials, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}
	if s.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.base)
	}

	src := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil && rErr.Response.StatusCode < http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %v", ErrCredentialRejected, err)
		}
		return nil, fmt.Errorf("refresh access token: %w", err)
	}

	// The token is already fresh; a static source avoids a second refresh mid-run.
	return &Credentials{
		Token:  tok,
		Client: oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok)),
	}, nil
}
