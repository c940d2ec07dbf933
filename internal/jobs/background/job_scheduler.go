package background

import (
	"context"
	"log"
	"time"

	"soundcheck/internal/analytics"
	"soundcheck/internal/repositories"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler runs periodic housekeeping: credential cleanup and KPI cache
// warming. All state lives in Postgres/Redis, so any instance may run it.
type JobScheduler struct {
	scheduler        gocron.Scheduler
	analyticsService *analytics.Service
	tenantRepo       repositories.TenantRepository
	resetTokenRepo   repositories.ResetTokenRepository
	deviceRepo       repositories.TrustedDeviceRepository
}

func NewJobScheduler(analyticsService *analytics.Service, tenantRepo repositories.TenantRepository,
	resetTokenRepo repositories.ResetTokenRepository, deviceRepo repositories.TrustedDeviceRepository) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:        scheduler,
		analyticsService: analyticsService,
		tenantRepo:       tenantRepo,
		resetTokenRepo:   resetTokenRepo,
		deviceRepo:       deviceRepo,
	}
	js.registerJobs()

	return js, nil
}

// Start starts the job scheduler.
func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler.
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	// Expired reset tokens and trusted devices - hourly
	if _, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.purgeExpiredCredentials),
		gocron.WithName("credential-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		log.Printf("Failed to create credential cleanup job: %v", err)
	}

	// KPI cache warming - every 5 minutes
	if _, err := js.scheduler.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(js.refreshTenantKPIs),
		gocron.WithName("kpi-cache-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		log.Printf("Failed to create KPI refresh job: %v", err)
	}
}

// purgeExpiredCredentials removes stale password-reset tokens and expired
// trusted devices. Tokens are kept one validity window past expiry so a
// just-expired link still produces a clean error instead of a 404.
func (js *JobScheduler) purgeExpiredCredentials() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now()
	tokens, err := js.resetTokenRepo.DeleteStale(ctx, now.Add(-24*time.Hour))
	if err != nil {
		log.Printf("Failed to purge reset tokens: %v", err)
	} else if tokens > 0 {
		log.Printf("Purged %d stale password reset tokens", tokens)
	}

	devices, err := js.deviceRepo.DeleteExpired(ctx, now)
	if err != nil {
		log.Printf("Failed to purge trusted devices: %v", err)
	} else if devices > 0 {
		log.Printf("Purged %d expired trusted devices", devices)
	}
}

// refreshTenantKPIs recomputes the unscoped summary KPIs for every active
// tenant so dashboards usually hit a warm cache.
func (js *JobScheduler) refreshTenantKPIs() {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	tenants, err := js.tenantRepo.List(ctx, 500, 0)
	if err != nil {
		log.Printf("Failed to list tenants for KPI refresh: %v", err)
		return
	}

	for _, tenant := range tenants {
		if !tenant.IsActive {
			continue
		}
		if _, err := js.analyticsService.SummaryKPIs(ctx, tenant.ID, nil); err != nil {
			log.Printf("Failed to refresh KPIs for tenant %s: %v", tenant.Slug, err)
		}
	}
}
