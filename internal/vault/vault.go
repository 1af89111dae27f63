// Package vault stores and refreshes the per-user OAuth credential pair for
// the external calendar service. Refresh tokens never leave this package;
// callers only ever see the access-token view.
package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/trainhub/trainhub-server/internal/logger"
	"github.com/trainhub/trainhub-server/internal/model"
)

// expirySkew is subtracted from the stored expiry so a token about to lapse is
// refreshed before it is presented remotely.
const expirySkew = 30 * time.Second

// NewOAuthConfig creates the OAuth2 config for the Google Calendar scope.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar",
		},
		Endpoint: google.Endpoint,
	}
}

// Vault composes a pure credential read with an explicit refresh side effect.
type Vault struct {
	store  model.CredentialStore
	conf   *oauth2.Config
	logger *logger.Logger
	now    func() time.Time
}

// New creates a Vault backed by the given credential store and OAuth config.
func New(store model.CredentialStore, conf *oauth2.Config, logger *logger.Logger) *Vault {
	return &Vault{
		store:  store,
		conf:   conf,
		logger: logger,
		now:    time.Now,
	}
}

// AuthCodeURL returns the consent URL the user visits to authorize calendar
// access. Offline access is requested so a refresh token comes back with the
// first exchange.
func (v *Vault) AuthCodeURL(state string) string {
	return v.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Connect redeems a consent code and stores the resulting credential pair.
// This is the only way a credential enters the vault.
func (v *Vault) Connect(ctx context.Context, userID uuid.UUID, code string) error {
	token, err := v.conf.Exchange(ctx, code)
	if err != nil {
		return classifyRefreshError(err)
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("consent response carried no refresh token: %w", model.ErrAuthRevoked)
	}

	err = v.store.SaveOAuthToken(ctx, userID, model.OAuthToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	})
	if err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	return nil
}

// Resolve reads the stored credential without side effects. The result may be
// stale; pair with RefreshIfNeeded before presenting it remotely.
// A user who never connected a calendar yields model.ErrAuthRevoked: there is
// nothing to refresh and re-consent is the only way forward.
func (v *Vault) Resolve(ctx context.Context, userID uuid.UUID) (model.Credential, error) {
	token, err := v.store.GetOAuthToken(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Credential{}, fmt.Errorf("no stored calendar credential: %w", model.ErrAuthRevoked)
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("failed to read stored credential: %w", err)
	}

	return model.Credential{AccessToken: token.AccessToken, Expiry: token.Expiry}, nil
}

// RefreshIfNeeded exchanges the stored refresh token for a fresh access token
// when the given credential is expired, and persists the result. A credential
// still inside its validity window is returned unchanged.
func (v *Vault) RefreshIfNeeded(ctx context.Context, userID uuid.UUID, cred model.Credential) (model.Credential, error) {
	if cred.Valid(v.now().Add(expirySkew)) {
		return cred, nil
	}

	stored, err := v.store.GetOAuthToken(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Credential{}, fmt.Errorf("no stored calendar credential: %w", model.ErrAuthRevoked)
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("failed to read stored credential: %w", err)
	}

	source := v.conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		Expiry:       v.now().Add(-time.Minute), // force the source to refresh
	})

	refreshed, err := source.Token()
	if err != nil {
		return model.Credential{}, classifyRefreshError(err)
	}

	next := model.OAuthToken{
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshed.RefreshToken,
		Expiry:       refreshed.Expiry,
	}
	// Google omits the refresh token on plain refreshes; keep the stored one.
	if next.RefreshToken == "" {
		next.RefreshToken = stored.RefreshToken
	}

	if err := v.store.SaveOAuthToken(ctx, userID, next); err != nil {
		// The refreshed token is usable even if persisting it failed; the next
		// call simply refreshes again.
		v.logger.Error("failed to persist refreshed credential", "user_id", userID, "error", err)
	}

	return model.Credential{AccessToken: next.AccessToken, Expiry: next.Expiry}, nil
}

// GetValidCredential resolves the stored credential and refreshes it if
// expired. Errors are classified: model.ErrAuthRevoked is terminal and
// requires re-consent, model.ErrTransient is retryable.
func (v *Vault) GetValidCredential(ctx context.Context, userID uuid.UUID) (model.Credential, error) {
	cred, err := v.Resolve(ctx, userID)
	if err != nil {
		return model.Credential{}, err
	}

	return v.RefreshIfNeeded(ctx, userID, cred)
}

func classifyRefreshError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
			return fmt.Errorf("token endpoint unavailable: %w", model.ErrTransient)
		}
		// invalid_grant and friends: the refresh token itself is dead.
		return fmt.Errorf("refresh rejected (%s): %w", retrieveErr.ErrorCode, model.ErrAuthRevoked)
	}

	return fmt.Errorf("token refresh failed: %w", model.ErrTransient)
}
