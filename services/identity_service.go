package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrIdentityRejected means Auth0 refused the access token
	ErrIdentityRejected = errors.New("access token rejected by Auth0")
	// ErrIdentityMismatch means the profile Auth0 returned belongs to another subject
	ErrIdentityMismatch = errors.New("userinfo subject does not match the token")
)

// StaffIdentity is what Auth0 knows about a member of staff
type StaffIdentity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Nickname      string `json:"nickname"`
}

// DisplayName is the name a new profile is created with. Auth0 puts the email address in
// name when the user never set one, so the nickname is preferred in that case.
func (i StaffIdentity) DisplayName() string {
	name := strings.TrimSpace(i.Name)
	if name == "" || (name == i.Email && i.Nickname != "") {
		return strings.TrimSpace(i.Nickname)
	}
	return name
}

// IdentityService resolves staff identity from the Auth0 /userinfo endpoint when a
// profile is first created
type IdentityService struct {
	userInfoURL string
	httpClient  *http.Client
}

// NewIdentityService creates a resolver for the Auth0 tenant at domain. A domain that
// already carries a scheme is used as is.
func NewIdentityService(domain string) *IdentityService {
	base := strings.TrimSuffix(domain, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &IdentityService{
		userInfoURL: base + "/userinfo",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolve returns the identity behind accessToken, which must belong to subject
func (s *IdentityService) Resolve(ctx context.Context, accessToken, subject string) (*StaffIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling userinfo: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("Failed to close userinfo response body: %v", closeErr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrIdentityRejected
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var identity StaffIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	if identity.Subject != subject {
		log.Printf("Userinfo for %s came back as %q", subject, identity.Subject)
		return nil, ErrIdentityMismatch
	}
	return &identity, nil
}
