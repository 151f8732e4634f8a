package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"bizdesk/internal/domain/campaigns"
	"bizdesk/internal/domain/tenant"
)

// UsageItem pairs current usage against the effective limit for one
// resource kind. Limit 0 means unlimited.
type UsageItem struct {
	Kind  tenant.LimitKind `json:"kind"`
	Usage int              `json:"usage"`
	Limit int              `json:"limit"`
}

type LimitSource interface {
	Limit(ctx context.Context, tenantID string, kind tenant.LimitKind) (int, error)
	Usage(ctx context.Context, tenantID string, kind tenant.LimitKind) (int, error)
}

type CampaignSource interface {
	GetCampaign(ctx context.Context, tenantID, campaignID string) (campaigns.Campaign, error)
}

type Service struct {
	Limits    LimitSource
	Campaigns CampaignSource
}

func NewService(limits LimitSource, campaignStore CampaignSource) *Service {
	return &Service{Limits: limits, Campaigns: campaignStore}
}

// UsageSummary reports usage against effective limits for every resource
// kind the plan constrains.
func (s *Service) UsageSummary(ctx context.Context, tenantID string) ([]UsageItem, error) {
	kinds := []tenant.LimitKind{tenant.LimitUsers, tenant.LimitContacts, tenant.LimitEmails}
	items := make([]UsageItem, 0, len(kinds))
	for _, kind := range kinds {
		limit, err := s.Limits.Limit(ctx, tenantID, kind)
		if err != nil {
			return nil, fmt.Errorf("limit for %s: %w", kind, err)
		}
		usage, err := s.Limits.Usage(ctx, tenantID, kind)
		if err != nil {
			return nil, fmt.Errorf("usage for %s: %w", kind, err)
		}
		items = append(items, UsageItem{Kind: kind, Usage: usage, Limit: limit})
	}
	return items, nil
}

// CampaignReportPDF renders a performance report for one campaign.
// A missing campaign surfaces as the store's not-found error.
func (s *Service) CampaignReportPDF(ctx context.Context, tenantID, campaignID, tenantName string) ([]byte, error) {
	c, err := s.Campaigns.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Campaign report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, c.Name)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("%s - generated %s", tenantName, time.Now().UTC().Format("2006-01-02 15:04 UTC")))
	pdf.Ln(12)

	timeOrDash := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04")
	}
	rows := [][2]string{
		{"Subject", c.Subject},
		{"Status", c.Status},
		{"Emails sent", fmt.Sprintf("%d", c.SentCount)},
		{"Scheduled at", timeOrDash(c.ScheduledAt)},
		{"Sent at", timeOrDash(c.SentAt)},
		{"Created at", c.CreatedAt.UTC().Format("2006-01-02 15:04")},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(235, 235, 235)
		pdf.CellFormat(50, 8, row[0], "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(120, 8, row[1], "1", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
