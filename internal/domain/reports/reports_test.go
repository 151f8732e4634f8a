package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"bizdesk/internal/domain/campaigns"
	"bizdesk/internal/domain/tenant"
)

type fakeLimits struct {
	limits map[tenant.LimitKind]int
	usage  map[tenant.LimitKind]int
}

func (f fakeLimits) Limit(_ context.Context, _ string, kind tenant.LimitKind) (int, error) {
	return f.limits[kind], nil
}

func (f fakeLimits) Usage(_ context.Context, _ string, kind tenant.LimitKind) (int, error) {
	return f.usage[kind], nil
}

type fakeCampaigns struct {
	byID map[string]campaigns.Campaign
}

func (f fakeCampaigns) GetCampaign(_ context.Context, _ string, campaignID string) (campaigns.Campaign, error) {
	c, ok := f.byID[campaignID]
	if !ok {
		return campaigns.Campaign{}, pgx.ErrNoRows
	}
	return c, nil
}

func TestUsageSummaryCoversAllKinds(t *testing.T) {
	svc := NewService(fakeLimits{
		limits: map[tenant.LimitKind]int{tenant.LimitUsers: 10, tenant.LimitContacts: 5000, tenant.LimitEmails: 0},
		usage:  map[tenant.LimitKind]int{tenant.LimitUsers: 4, tenant.LimitContacts: 1200, tenant.LimitEmails: 9001},
	}, fakeCampaigns{})

	items, err := svc.UsageSummary(context.Background(), "t1")
	if err != nil {
		t.Fatalf("UsageSummary: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 usage items, got %d", len(items))
	}
	byKind := map[tenant.LimitKind]UsageItem{}
	for _, item := range items {
		byKind[item.Kind] = item
	}
	if got := byKind[tenant.LimitUsers]; got.Usage != 4 || got.Limit != 10 {
		t.Errorf("users usage = %+v", got)
	}
	if got := byKind[tenant.LimitEmails]; got.Limit != 0 {
		t.Errorf("unlimited email limit should be 0, got %d", got.Limit)
	}
}

func TestCampaignReportPDFRenders(t *testing.T) {
	sentAt := time.Date(2026, 8, 12, 9, 30, 0, 0, time.UTC)
	svc := NewService(fakeLimits{}, fakeCampaigns{byID: map[string]campaigns.Campaign{
		"c1": {ID: "c1", Name: "August news", Subject: "News", Status: campaigns.StatusSent, SentCount: 42, SentAt: &sentAt},
	}})

	pdf, err := svc.CampaignReportPDF(context.Background(), "t1", "c1", "Acme Salon")
	if err != nil {
		t.Fatalf("CampaignReportPDF: %v", err)
	}
	if len(pdf) == 0 || string(pdf[:4]) != "%PDF" {
		t.Fatalf("output does not look like a PDF (%d bytes)", len(pdf))
	}
}

func TestCampaignReportPDFMissingCampaign(t *testing.T) {
	svc := NewService(fakeLimits{}, fakeCampaigns{})

	if _, err := svc.CampaignReportPDF(context.Background(), "t1", "nope", "Acme Salon"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}
}
