package auth

import (
	"chat-session/contract"
	"chat-session/domain"
	"log/slog"
	"time"
)

var _ contract.SessionStore = (*TokenSession)(nil)

// TokenSession derives the local user from the stored bearer token.
type TokenSession struct {
	log      *slog.Logger
	provider contract.TokenProvider
	now      func() time.Time
}

func NewTokenSession(log *slog.Logger, provider contract.TokenProvider) *TokenSession {
	return &TokenSession{log: log, provider: provider, now: time.Now}
}

func (s *TokenSession) IsAuthenticated() bool {
	_, ok := s.CurrentUser()
	return ok
}

func (s *TokenSession) CurrentUser() (domain.UserRef, bool) {
	token, err := s.provider.GetToken()
	if err != nil {
		s.log.Warn("Token unavailable", "error", err)
		return domain.UserRef{}, false
	}
	if token == "" {
		return domain.UserRef{}, false
	}
	claims, err := ReadClaims(token)
	if err != nil {
		s.log.Debug("Token is not a readable JWT", "error", err)
		return domain.UserRef{}, false
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(s.now()) {
		return domain.UserRef{}, false
	}
	if claims.UserID == "" {
		return domain.UserRef{}, false
	}
	return domain.UserRef{UserID: claims.UserID, DisplayName: claims.Name}, true
}

// StaticSession is a fixed identity, for embedding the core where the user is already known.
type StaticSession struct {
	User domain.UserRef
}

func (s StaticSession) IsAuthenticated() bool { return s.User.UserID != "" }

func (s StaticSession) CurrentUser() (domain.UserRef, bool) {
	return s.User, s.User.UserID != ""
}
