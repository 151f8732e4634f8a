package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appointmentsdomain "bizdesk/internal/domain/appointments"
	"bizdesk/internal/domain/audit"
	"bizdesk/internal/domain/auth"
	"bizdesk/internal/domain/billing"
	"bizdesk/internal/domain/campaigns"
	"bizdesk/internal/domain/contacts"
	"bizdesk/internal/domain/promotions"
	"bizdesk/internal/domain/reports"
	"bizdesk/internal/domain/signup"
	"bizdesk/internal/domain/tenant"
	"bizdesk/internal/platform/cache"
	"bizdesk/internal/platform/config"
	cryptoutil "bizdesk/internal/platform/crypto"
	"bizdesk/internal/platform/db"
	"bizdesk/internal/platform/email"
	"bizdesk/internal/platform/jobs"
	"bizdesk/internal/platform/metrics"
	appointmentshandler "bizdesk/internal/transport/http/handlers/appointments"
	audithandler "bizdesk/internal/transport/http/handlers/audit"
	authhandler "bizdesk/internal/transport/http/handlers/auth"
	billinghandler "bizdesk/internal/transport/http/handlers/billing"
	campaignshandler "bizdesk/internal/transport/http/handlers/campaigns"
	contactshandler "bizdesk/internal/transport/http/handlers/contacts"
	permissionshandler "bizdesk/internal/transport/http/handlers/permissions"
	promotionshandler "bizdesk/internal/transport/http/handlers/promotions"
	reportshandler "bizdesk/internal/transport/http/handlers/reports"
	signuphandler "bizdesk/internal/transport/http/handlers/signup"
	usershandler "bizdesk/internal/transport/http/handlers/users"
	"bizdesk/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	redisCache := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisCache.Close()

	cryptoSvc, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		log.Fatalf("encryption key invalid: %v", err)
	}

	mailer := email.New(cfg)
	collector := metrics.New()

	// Domain wiring.
	authStore := auth.NewStore(pool)
	overrides := auth.NewOverrides(pool)
	resolver := auth.NewResolver(overrides)
	tenantStore := tenant.NewStore(pool)
	limits := tenant.NewLimits(tenantStore)
	billingStore := billing.NewStore(pool)
	contactStore := contacts.NewStore(pool)
	campaignStore := campaigns.NewStore(pool)
	campaignSvc := campaigns.NewService(campaignStore, contactStore, limits,
		campaignMailer{mailer: mailer, from: cfg.EmailFrom})
	appointmentStore := appointmentsdomain.NewStore(pool)
	promotionStore := promotions.NewStore(pool)
	auditStore := audit.NewStore(pool)
	reportSvc := reports.NewService(limits, campaignStore)
	idempotency := middleware.NewIdempotencyStore(pool)
	signupSvc := &signup.Service{
		Cache:       redisCache,
		Provisioner: tenantStore,
		Mailer:      mailer,
		From:        cfg.EmailFrom,
		TTL:         cfg.SignupTTL,
		Enabled:     cfg.AllowSelfSignup,
	}

	jobService := jobs.New(pool, cfg, campaignSvc)
	jobService.Start(ctx)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute/6+1, time.Minute))
	router.Use(middleware.Auth(cfg.JWTSecret, authStore))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if err := redisCache.Ping(ctx); err != nil {
			http.Error(w, "cache not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(collector.Snapshot())
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authStore, cfg.JWTSecret, cryptoSvc).RegisterRoutes(r)
		signuphandler.NewHandler(signupSvc).RegisterRoutes(r)
		permissionshandler.NewHandler(resolver, overrides, auditStore).RegisterRoutes(r)
		usershandler.NewHandler(tenantStore, limits, resolver, auditStore).RegisterRoutes(r)
		contactshandler.NewHandler(contactStore, limits, resolver).RegisterRoutes(r)
		campaignshandler.NewHandler(campaignStore, campaignSvc, resolver, auditStore, idempotency).RegisterRoutes(r)
		appointmentshandler.NewHandler(appointmentStore, resolver).RegisterRoutes(r)
		promotionshandler.NewHandler(promotionStore, resolver).RegisterRoutes(r)
		billinghandler.NewHandler(billingStore, resolver, auditStore).RegisterRoutes(r)
		audithandler.NewHandler(auditStore, resolver).RegisterRoutes(r)
		reportshandler.NewHandler(reportSvc, tenantStore, resolver).RegisterRoutes(r)
	})

	log.Printf("bizdesk server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// campaignMailer binds the configured From address onto the platform mailer
// for campaign delivery.
type campaignMailer struct {
	mailer email.Mailer
	from   string
}

func (m campaignMailer) Send(ctx context.Context, to, subject, body string) error {
	return m.mailer.Send(ctx, m.from, to, subject, body)
}
