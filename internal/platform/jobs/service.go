package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bizdesk/internal/platform/config"
)

const JobCampaignDispatch = "campaign_dispatch"

// CampaignDispatcher owns the scheduled-send pass; the scheduler only
// decides when it runs.
type CampaignDispatcher interface {
	DispatchDue(ctx context.Context, now time.Time) (int, error)
}

type Service struct {
	DB        *pgxpool.Pool
	Cfg       config.Config
	Campaigns CampaignDispatcher
	queue     chan job
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, cfg config.Config, dispatcher CampaignDispatcher) *Service {
	return &Service{
		DB:        db,
		Cfg:       cfg,
		Campaigns: dispatcher,
		queue:     make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.CampaignDispatchInterval > 0 {
		go s.scheduleCampaignDispatch(ctx, s.Cfg.CampaignDispatchInterval)
	}
}

func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType, "tenantId", tenantID)
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "tenantId", j.TenantID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.DB != nil {
		if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (tenant_id, job_type, status)
    VALUES ($1,$2,$3)
    RETURNING id
  `, j.TenantID, j.Type, "running").Scan(&runID); err != nil {
			slog.Warn("job run insert failed", "err", err)
		}
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

// scheduleCampaignDispatch periodically enqueues a scheduled-send pass.
func (s *Service) scheduleCampaignDispatch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueueCampaignDispatch()
		}
	}
}

func (s *Service) enqueueCampaignDispatch() {
	s.Enqueue(JobCampaignDispatch, "", func(ctx context.Context) (any, error) {
		dispatched, err := s.Campaigns.DispatchDue(ctx, time.Now())
		return map[string]any{"dispatched": dispatched}, err
	})
}
