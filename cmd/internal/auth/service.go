package auth

import (
	"context"
	"log/slog"

	"tasklist/cmd/identity"
	"tasklist/cmd/security/password"
	"tasklist/cmd/security/token"
)

// Service bundles the authentication pieces the HTTP layer needs.
type Service struct {
	Authn  *Authenticator
	Issuer *Issuer
	Authz  *Authorizer
}

// NewService wires an Authenticator, Issuer and Authorizer over one store.
func NewService(store identity.Store, pw password.Config, hasher token.Hasher, cfg Config, log *slog.Logger) (*Service, error) {
	authn, err := NewAuthenticator(store, pw, log)
	if err != nil {
		return nil, err
	}
	issuer, err := NewIssuer(store, hasher, cfg, log)
	if err != nil {
		return nil, err
	}
	authz, err := NewAuthorizer(store, hasher, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Service{Authn: authn, Issuer: issuer, Authz: authz}, nil
}

// Login authenticates and, on success, issues a new token.
func (s *Service) Login(ctx context.Context, name, plaintext string) (identity.Account, string, error) {
	acct, err := s.Authn.Authenticate(ctx, name, plaintext)
	if err != nil {
		return identity.Account{}, "", err
	}
	tok, err := s.Issuer.Issue(ctx, acct.ID)
	if err != nil {
		return identity.Account{}, "", err
	}
	return acct, tok, nil
}
