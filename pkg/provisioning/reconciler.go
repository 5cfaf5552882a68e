package provisioning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/tenantcore/pkg/async"
	"github.com/platinummonkey/tenantcore/pkg/observability"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultThreshold is how long provisioning may take before an organization counts as stuck
	DefaultThreshold = 24 * time.Hour

	// DefaultSchedule is the cron spec for periodic scans
	DefaultSchedule = "@every 10m"
)

// Source lists organizations created before cutoff that are still unprovisioned.
// *rbac.Store implements it.
type Source interface {
	ListStuckOrganizations(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// ScanResult is what one scan found
type ScanResult struct {
	ID              string
	DetectedAt      time.Time
	OrganizationIDs []uuid.UUID
}

// Sink receives the stuck set of each scan that found any
type Sink interface {
	ReportStuck(ctx context.Context, result ScanResult) error
}

// Reconciler scans for stuck organizations on a fixed schedule
type Reconciler struct {
	source    Source
	sink      Sink
	threshold time.Duration
	schedule  string
	timeout   time.Duration
	logger    *observability.Logger
	metrics   *observability.Metrics
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithThreshold overrides DefaultThreshold
func WithThreshold(d time.Duration) Option {
	return func(r *Reconciler) { r.threshold = d }
}

// WithSchedule overrides DefaultSchedule. Any robfig/cron spec is accepted.
func WithSchedule(spec string) Option {
	return func(r *Reconciler) { r.schedule = spec }
}

// WithScanTimeout bounds each scheduled scan (default: 1m)
func WithScanTimeout(d time.Duration) Option {
	return func(r *Reconciler) { r.timeout = d }
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler creates a Reconciler. sink may be nil, in which case stuck
// organizations are only logged and counted.
func NewReconciler(source Source, sink Sink, logger *observability.Logger, metrics *observability.Metrics, opts ...Option) *Reconciler {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	r := &Reconciler{
		source:    source,
		sink:      sink,
		threshold: DefaultThreshold,
		schedule:  DefaultSchedule,
		timeout:   time.Minute,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scan finds organizations created strictly more than the threshold ago that
// are still unprovisioned, reports them to the sink and returns them. It never
// writes to the store.
func (r *Reconciler) Scan(ctx context.Context) ([]uuid.UUID, error) {
	now := r.now().UTC()
	ids, err := r.source.ListStuckOrganizations(ctx, now.Add(-r.threshold))
	if err != nil {
		r.metrics.RecordReconcilerScan(0, err)
		return nil, fmt.Errorf("failed to scan for stuck organizations: %w", err)
	}

	r.metrics.RecordReconcilerScan(len(ids), nil)
	if len(ids) == 0 {
		r.logger.Debug("no stuck organizations")
		return ids, nil
	}

	result := ScanResult{ID: uuid.NewString(), DetectedAt: now, OrganizationIDs: ids}
	r.logger.WithFields(map[string]interface{}{
		"scan_id": result.ID,
		"count":   len(ids),
	}).Warn("organizations stuck in provisioning")

	if r.sink != nil {
		if err := r.sink.ReportStuck(ctx, result); err != nil {
			return ids, fmt.Errorf("failed to report stuck organizations: %w", err)
		}
	}
	return ids, nil
}

// Start schedules Scan. Overlapping runs are skipped. ctx bounds every
// scheduled scan; cancel it or call Stop to end the schedule.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return errors.New("reconciler already started")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(r.schedule, func() {
		scanCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		err := async.Recover("provisioning scan", func() error {
			_, err := r.Scan(scanCtx)
			return err
		})
		if err != nil {
			r.logger.WithError(err).Error("scheduled scan failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reconciler schedule %q: %w", r.schedule, err)
	}

	c.Start()
	r.cron = c
	r.logger.WithFields(map[string]interface{}{
		"schedule":  r.schedule,
		"threshold": r.threshold.String(),
	}).Info("provisioning reconciler started")
	return nil
}

// Stop ends the schedule and waits for a running scan to finish
func (r *Reconciler) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	r.logger.Info("provisioning reconciler stopped")
}
