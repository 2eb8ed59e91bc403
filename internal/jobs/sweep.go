package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/astroline/consult-agent-go/internal/repository"
)

// SweepJob periodically deletes active-session rows that were never
// explicitly ended, e.g. a device that crashed mid-session and never came
// back to hang up. Without it a stale "return to session" affordance would
// survive forever.
type SweepJob struct {
	sessionRepo repository.SessionStateRepository
	maxAge      time.Duration
	interval    time.Duration
	done        chan struct{}
}

func NewSweepJob(sessionRepo repository.SessionStateRepository, maxAge, interval time.Duration) *SweepJob {
	return &SweepJob{
		sessionRepo: sessionRepo,
		maxAge:      maxAge,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *SweepJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("maxAge", j.maxAge).Msg("session sweep job started")
}

func (j *SweepJob) Stop() {
	close(j.done)
	log.Info().Msg("session sweep job stopped")
}

func (j *SweepJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *SweepJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.sessionRepo.DeleteStale(ctx, j.maxAge)
	if err != nil {
		log.Error().Err(err).Msg("failed to sweep stale sessions")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("swept stale sessions")
	}
}
