package signup

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"bizdesk/internal/domain/auth"
	"bizdesk/internal/platform/cache"
)

var (
	ErrNotFound = errors.New("no pending signup for this email")
	ErrBadCode  = errors.New("confirmation code does not match")
	ErrDisabled = errors.New("self-service signup is disabled")
)

// PendingSignup is the short-lived record held in the cache between the
// request and confirm steps. Only the password hash is stored.
type PendingSignup struct {
	Email        string    `json:"email"`
	TenantName   string    `json:"tenantName"`
	PasswordHash string    `json:"passwordHash"`
	Code         string    `json:"code"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Provisioner creates the tenant, its Owner account, and a free
// subscription in one transaction.
type Provisioner interface {
	ProvisionTenant(ctx context.Context, name, ownerEmail, ownerPasswordHash string) (string, error)
}

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	Cache       *cache.Cache
	Provisioner Provisioner
	Mailer      Mailer
	From        string
	TTL         time.Duration
	Enabled     bool
}

func cacheKey(email string) string {
	return "signup:" + strings.ToLower(strings.TrimSpace(email))
}

// Request stages a signup and emails a confirmation code. Repeating the
// request replaces any earlier pending record for the same email.
func (s *Service) Request(ctx context.Context, email, tenantName, password string) error {
	if !s.Enabled {
		return ErrDisabled
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	code, err := confirmationCode()
	if err != nil {
		return err
	}
	pending := PendingSignup{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		TenantName:   strings.TrimSpace(tenantName),
		PasswordHash: hash,
		Code:         code,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Cache.SetJSON(ctx, cacheKey(email), pending, s.TTL); err != nil {
		return fmt.Errorf("stage signup: %w", err)
	}
	body := fmt.Sprintf("Your confirmation code is %s. It expires in %d minutes.", code, int(s.TTL.Minutes()))
	return s.Mailer.Send(ctx, s.From, pending.Email, "Confirm your signup", body)
}

// Confirm checks the code against the pending record, provisions the
// tenant, and drops the record. Expiry is enforced by the cache TTL.
func (s *Service) Confirm(ctx context.Context, email, code string) (string, error) {
	if !s.Enabled {
		return "", ErrDisabled
	}
	var pending PendingSignup
	err := s.Cache.GetJSON(ctx, cacheKey(email), &pending)
	if errors.Is(err, cache.ErrMiss) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if pending.Code != strings.TrimSpace(code) {
		return "", ErrBadCode
	}
	tenantID, err := s.Provisioner.ProvisionTenant(ctx, pending.TenantName, pending.Email, pending.PasswordHash)
	if err != nil {
		return "", err
	}
	if err := s.Cache.Delete(ctx, cacheKey(email)); err != nil {
		return tenantID, nil
	}
	return tenantID, nil
}

func confirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
