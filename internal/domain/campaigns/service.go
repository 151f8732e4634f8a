package campaigns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bizdesk/internal/domain/tenant"
)

var (
	ErrNotSendable   = errors.New("campaign is not in a sendable state")
	ErrNoRecipients  = errors.New("campaign list has no subscribed recipients")
	ErrQuotaExceeded = errors.New("monthly email quota exceeded")
)

// CampaignStore is the slice of Store the send path needs.
type CampaignStore interface {
	GetCampaign(ctx context.Context, tenantID, campaignID string) (Campaign, error)
	MarkSending(ctx context.Context, tenantID, campaignID string) (bool, error)
	MarkSent(ctx context.Context, tenantID, campaignID string, sentCount int) error
	Schedule(ctx context.Context, tenantID, campaignID string, at time.Time) error
	ListDue(ctx context.Context, now time.Time) ([]Campaign, error)
	RecordEmails(ctx context.Context, tenantID, campaignID string, recipients []string) error
}

type RecipientSource interface {
	ListRecipients(ctx context.Context, tenantID, listID string) ([]string, error)
}

type QuotaChecker interface {
	CanAdd(ctx context.Context, tenantID string, kind tenant.LimitKind, n int) (bool, int, int, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Service struct {
	Store      CampaignStore
	Recipients RecipientSource
	Quota      QuotaChecker
	Mailer     Mailer
}

func NewService(store CampaignStore, recipients RecipientSource, quota QuotaChecker, mailer Mailer) *Service {
	return &Service{Store: store, Recipients: recipients, Quota: quota, Mailer: mailer}
}

// Send resolves the campaign's recipient list, checks the tenant's monthly
// email quota, delivers, and records the send. Individual delivery failures
// are logged and skipped; they do not abort the campaign.
func (s *Service) Send(ctx context.Context, tenantID, campaignID string) (int, error) {
	campaign, err := s.Store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return 0, err
	}
	if campaign.Status != StatusDraft && campaign.Status != StatusScheduled {
		return 0, ErrNotSendable
	}

	recipients, err := s.Recipients.ListRecipients(ctx, tenantID, campaign.ListID)
	if err != nil {
		return 0, fmt.Errorf("resolve recipients: %w", err)
	}
	if len(recipients) == 0 {
		return 0, ErrNoRecipients
	}

	ok, usage, limit, err := s.Quota.CanAdd(ctx, tenantID, tenant.LimitEmails, len(recipients))
	if err != nil {
		return 0, fmt.Errorf("check email quota: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: %d of %d used, %d requested", ErrQuotaExceeded, usage, limit, len(recipients))
	}

	claimed, err := s.Store.MarkSending(ctx, tenantID, campaignID)
	if err != nil {
		return 0, err
	}
	if !claimed {
		return 0, ErrNotSendable
	}

	var sent []string
	for _, recipient := range recipients {
		if err := s.Mailer.Send(ctx, recipient, campaign.Subject, campaign.Body); err != nil {
			slog.Warn("campaign delivery failed",
				"tenantId", tenantID, "campaignId", campaignID, "recipient", recipient, "error", err)
			continue
		}
		sent = append(sent, recipient)
	}

	if err := s.Store.RecordEmails(ctx, tenantID, campaignID, sent); err != nil {
		return len(sent), fmt.Errorf("record sends: %w", err)
	}
	if err := s.Store.MarkSent(ctx, tenantID, campaignID, len(sent)); err != nil {
		return len(sent), err
	}
	return len(sent), nil
}

// Schedule queues a draft campaign for the background dispatcher.
func (s *Service) Schedule(ctx context.Context, tenantID, campaignID string, at time.Time) error {
	if at.Before(time.Now()) {
		return errors.New("scheduled time is in the past")
	}
	return s.Store.Schedule(ctx, tenantID, campaignID, at)
}

// DispatchDue sends every scheduled campaign whose time has come and
// returns how many were dispatched. Errors on one campaign do not block
// the rest.
func (s *Service) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.Store.ListDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due campaigns: %w", err)
	}
	dispatched := 0
	for _, campaign := range due {
		if _, err := s.Send(ctx, campaign.TenantID, campaign.ID); err != nil {
			slog.Warn("dispatch scheduled campaign",
				"tenantId", campaign.TenantID, "campaignId", campaign.ID, "error", err)
			continue
		}
		dispatched++
	}
	return dispatched, nil
}
