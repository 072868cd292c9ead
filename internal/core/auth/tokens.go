package auth

import (
	"errors"
	"fmt"
)

// Pair is what a successful authentication hands back to the client.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService issues access/refresh pairs. Each kind has its own secret,
// so a token of one kind never verifies as the other.
type TokenService struct {
	Access  *JWTer
	Refresh *JWTer
}

func NewTokenService(access, refresh *JWTer) (*TokenService, error) {
	if access == nil || refresh == nil {
		return nil, errors.New("auth: access and refresh signers are required")
	}
	if len(access.Secret) == 0 || len(refresh.Secret) == 0 {
		return nil, errors.New("auth: empty signing secret")
	}
	return &TokenService{Access: access, Refresh: refresh}, nil
}

func (s *TokenService) IssuePair(uid string) (Pair, error) {
	at, err := s.Access.Issue(uid)
	if err != nil {
		return Pair{}, fmt.Errorf("issue access token: %w", err)
	}
	rt, err := s.Refresh.Issue(uid)
	if err != nil {
		return Pair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return Pair{AccessToken: at, RefreshToken: rt}, nil
}

// VerifyAccess returns the user id carried by an access token.
func (s *TokenService) VerifyAccess(token string) (string, error) {
	c, err := s.Access.Parse(token)
	if err != nil {
		return "", err
	}
	return c.UserID, nil
}

// VerifyRefresh returns the user id carried by a refresh token.
func (s *TokenService) VerifyRefresh(token string) (string, error) {
	c, err := s.Refresh.Parse(token)
	if err != nil {
		return "", err
	}
	return c.UserID, nil
}
