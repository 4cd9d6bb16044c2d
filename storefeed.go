// Package storefeed wires the full ETL pipeline: fetch product and user
// records from upstream HTTP sources, upsert them into the primary relations,
// then recompute the derived projections (most_expensive, ods_users).
//
// One Service owns one database; pipeline runs are serialized so no two runs
// ever write the same relations concurrently. Each run leaves a run_log row
// with its aggregate statistics.
package storefeed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/storefeed/internal/derive"
	"github.com/hazyhaar/storefeed/internal/fetch"
	"github.com/hazyhaar/storefeed/internal/ingest"
	"github.com/hazyhaar/storefeed/internal/runlog"
	"github.com/hazyhaar/storefeed/internal/store"
)

// ErrRunInProgress is returned when a pipeline run is requested while another
// run is still active. Runs against the same relations must be serialized.
var ErrRunInProgress = errors.New("storefeed: a pipeline run is already in progress")

// RunReport is the aggregate outcome of one orchestrated pipeline run.
type RunReport struct {
	RunID       string         `json:"run_id"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	IngestOK    bool           `json:"ingest_ok"`
	Projections map[string]int `json:"projections"`
}

// Service owns the storefeed database and pipeline components.
type Service struct {
	cfg    *Config
	logger *slog.Logger
	store  *store.Store
	ingest *ingest.Runner
	derive *derive.Runner
	runs   *runlog.Recorder

	mu sync.Mutex // serializes pipeline runs
}

// New opens the database, applies the schema, and wires the pipeline.
func New(cfg *Config, logger *slog.Logger) (*Service, error) {
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.New(fetch.Config{
		Timeout:   cfg.Fetch.Timeout.Std(),
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
	}, logger)

	loaders := []ingest.Loader{
		ingest.NewProductLoader(cfg.Sources.Products),
		ingest.NewUserLoader(cfg.Sources.Users),
	}

	return &Service{
		cfg:    cfg,
		logger: logger,
		store:  st,
		ingest: ingest.NewRunner(fetcher, st, loaders, logger),
		derive: derive.NewRunner(st, logger),
		runs:   runlog.NewRecorder(st.DB),
	}, nil
}

// Store exposes the underlying store, mainly for the HTTP handlers and tests.
func (s *Service) Store() *store.Store { return s.store }

// Close releases the database.
func (s *Service) Close() error {
	return s.store.Close()
}

// RunOnce executes one full pipeline run: primary ingestion, then both
// derived projections, then a run_log entry. The run itself never fails; a
// degraded stage shows up as IngestOK=false or a zero projection count. The
// only error is ErrRunInProgress when another run holds the pipeline.
func (s *Service) RunOnce(ctx context.Context) (*RunReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	runID := s.runs.NewRunID()
	log := s.logger.With("run_id", runID)
	started := time.Now()

	ok := s.ingest.Run(ctx)
	if ok {
		log.Info("storefeed: ingestion completed")
	} else {
		log.Error("storefeed: ingestion encountered errors")
	}

	counts := s.derive.RunAll(ctx)
	finished := time.Now()
	log.Info("storefeed: run finished",
		"ingest_ok", ok,
		"most_expensive", counts["most_expensive"],
		"ods_users", counts["ods_users"],
		"duration", finished.Sub(started))

	runErr := ""
	if !ok {
		runErr = "ingestion failed"
	}
	s.runs.Record(ctx, runlog.Entry{
		RunID:         runID,
		StartedAt:     started.UnixMilli(),
		FinishedAt:    finished.UnixMilli(),
		IngestOK:      ok,
		MostExpensive: counts["most_expensive"],
		OdsUsers:      counts["ods_users"],
		Error:         runErr,
	})

	return &RunReport{
		RunID:       runID,
		StartedAt:   started,
		FinishedAt:  finished,
		IngestOK:    ok,
		Projections: counts,
	}, nil
}

// RunPeriodic triggers a pipeline run every interval until ctx is cancelled.
// A tick that lands while a run is still active is skipped, not queued.
// The first run happens after one interval; callers wanting an immediate run
// call RunOnce first.
func (s *Service) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); errors.Is(err, ErrRunInProgress) {
				s.logger.Warn("storefeed: scheduled run skipped, previous run still active")
			}
		}
	}
}
