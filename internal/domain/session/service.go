package session

import (
	"context"
	"fmt"
	"strings"

	"cardlink/backend/internal/domain/cardholder"
	"cardlink/backend/internal/logging"
	"cardlink/backend/internal/validate"

	"go.uber.org/zap"
)

// Authenticator is the slice of the cardholder service login needs.
type Authenticator interface {
	VerifyPassword(ctx context.Context, email, password string) (*cardholder.Profile, error)
	RecordLogin(ctx context.Context, id string) error
}

type Service struct {
	cardholders Authenticator
	issuer      *Issuer
	log         *zap.Logger
}

func NewService(cardholders Authenticator, issuer *Issuer, log *zap.Logger) *Service {
	return &Service{
		cardholders: cardholders,
		issuer:      issuer,
		log:         logging.OrNop(log),
	}
}

// Login exchanges cardholder credentials for a session token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Trim()
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}

	p, err := s.cardholders.VerifyPassword(ctx, in.Email, in.Password)
	if err != nil {
		switch {
		case cardholder.IsErrUnauthorized(err):
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, stripSentinel(err, cardholder.ErrUnauthorized))
		case cardholder.IsErrBadRequest(err):
			return nil, fmt.Errorf("%w: %s", ErrBadRequest, stripSentinel(err, cardholder.ErrBadRequest))
		}
		return nil, err
	}

	token, exp, err := s.issuer.Issue(p.ID, p.CompanyID)
	if err != nil {
		return nil, err
	}

	if err := s.cardholders.RecordLogin(ctx, p.ID); err != nil {
		s.log.Warn("failed to record cardholder login", zap.String("id", p.ID), zap.Error(err))
	}

	return &LoginResult{Token: token, ExpiresAt: exp, Profile: p}, nil
}

// Verify validates a session token.
func (s *Service) Verify(token string) (*Claims, error) {
	return s.issuer.Verify(token)
}

func stripSentinel(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
