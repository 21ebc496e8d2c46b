package maintenance

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/transferlog/internal/config"
	"github.com/saltyorg/transferlog/internal/database"
)

// DefaultSchedule runs maintenance once a day at midnight
const DefaultSchedule = "@daily"

// Store is the database maintenance surface
type Store interface {
	Optimize() (database.MaintenanceResult, error)
	Vacuum() error
}

// Config controls scheduled maintenance
type Config struct {
	Schedule string
	Vacuum   bool
}

// DefaultConfig returns the default maintenance configuration
func DefaultConfig() Config {
	return Config{Schedule: DefaultSchedule}
}

// LoadConfig reads the maintenance configuration from settings
func LoadConfig(loader *config.Loader) Config {
	cfg := DefaultConfig()
	if loader == nil {
		return cfg
	}
	cfg.Schedule = loader.String(config.KeyMaintenanceSchedule, DefaultSchedule)
	cfg.Vacuum = loader.Bool(config.KeyMaintenanceVacuum, false)
	return cfg
}

// Scheduler runs PRAGMA optimize (and optionally VACUUM) on a cron schedule
type Scheduler struct {
	store   Store
	config  Config
	cron    *cron.Cron
	entryID cron.EntryID
	mu      sync.Mutex
	running bool
}

// New creates a new maintenance scheduler
func New(store Store, cfg Config) *Scheduler {
	return &Scheduler{
		store:  store,
		config: cfg,
		cron:   cron.New(),
	}
}

// Start registers the schedule and starts the cron runner
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}

	id, err := s.cron.AddFunc(schedule, func() { s.RunOnce() })
	if err != nil {
		return err
	}
	s.entryID = id
	s.cron.Start()
	s.running = true

	log.Info().
		Str("schedule", schedule).
		Bool("vacuum", s.config.Vacuum).
		Msg("Maintenance scheduler started")

	return nil
}

// Stop stops the cron runner, waiting for a running job to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron.Remove(s.entryID)
	s.entryID = 0
	s.running = false
	log.Info().Msg("Maintenance scheduler stopped")
}

// NextRun returns the next scheduled run, or the zero time when stopped
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.entryID == 0 {
		return time.Time{}
	}
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() && entry.Schedule != nil {
		// The runner goroutine fills Next in asynchronously after Start
		return entry.Schedule.Next(time.Now())
	}
	return entry.Next
}

// RunOnce performs one maintenance pass
func (s *Scheduler) RunOnce() error {
	start := time.Now()

	res, err := s.store.Optimize()
	if err != nil {
		log.Error().Err(err).Msg("Database optimize failed")
		return err
	}

	if s.config.Vacuum {
		if err := s.store.Vacuum(); err != nil {
			log.Error().Err(err).Msg("Database vacuum failed")
			return err
		}
	}

	log.Info().
		Dur("duration", time.Since(start)).
		Bool("vacuum", s.config.Vacuum).
		Int64("transfer_rows", res.TransferRows).
		Msg("Database maintenance complete")
	return nil
}
