package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mars-scraper/fetcher"
	"mars-scraper/logger"
	"mars-scraper/models"
	"mars-scraper/parser"
)

// Scraper runs every extractor against one shared browsing session and
// collects the results into a report
type Scraper struct {
	opener     fetcher.Opener
	fetcher    fetcher.Fetcher
	extractors []parser.Extractor
	now        func() time.Time
	newRunID   func() string
}

// Option customizes a Scraper
type Option func(*Scraper)

// WithClock replaces the clock used for visit and run timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// WithRunID replaces the run identifier generator
func WithRunID(fn func() string) Option {
	return func(s *Scraper) { s.newRunID = fn }
}

// New creates a Scraper. The extractors run in the given order and must
// cover every declared task exactly once.
func New(opener fetcher.Opener, f fetcher.Fetcher, extractors []parser.Extractor, opts ...Option) (*Scraper, error) {
	if opener == nil {
		return nil, fmt.Errorf("session opener is required")
	}
	if f == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	seen := make(map[models.TaskName]bool, len(extractors))
	for _, e := range extractors {
		name := e.Name()
		if !name.Valid() {
			return nil, fmt.Errorf("unknown task %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate extractor for task %q", name)
		}
		seen[name] = true
	}
	for _, task := range models.Tasks {
		if !seen[task] {
			return nil, fmt.Errorf("no extractor for task %q", task)
		}
	}

	s := &Scraper{
		opener:     opener,
		fetcher:    f,
		extractors: extractors,
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run performs one full run. It returns an error only when the session
// cannot be opened or a fetch fails in a way the task cannot absorb; the
// session is closed before Run returns in every case.
func (s *Scraper) Run(ctx context.Context) (*models.Report, error) {
	runID := s.newRunID()
	log := logger.Log.With().Str("run_id", runID).Logger()

	session, err := s.opener.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close browser session")
		} else {
			log.Debug().Msg("browser session closed")
		}
	}()

	report := models.NewReport(runID, s.now())
	env := &parser.Env{Session: session, Fetcher: s.fetcher, Now: s.now}

	log.Info().Int("tasks", len(s.extractors)).Msg("run started")
	for _, e := range s.extractors {
		result, err := s.extract(ctx, e, env)
		if err != nil {
			log.Error().Err(err).Str("task", string(e.Name())).Msg("run aborted")
			return nil, fmt.Errorf("failed to run task %s: %w", e.Name(), err)
		}
		report.Add(result)
		log.Info().Str("task", string(result.Task)).Bool("success", result.Success).Msg("task finished")
	}
	report.FinishedAt = s.now()

	log.Info().
		Int("succeeded", report.SuccessCount()).
		Int("total", len(report.Results)).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("run finished")
	return report, nil
}

// extract runs one extractor. A panic is recorded as the task's fallback
// so the remaining tasks still run.
func (s *Scraper) extract(ctx context.Context, e parser.Extractor, env *parser.Env) (result models.TaskResult, err error) {
	startedAt := s.now()
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error().Str("task", string(e.Name())).Interface("panic", r).Msg("extractor panicked, using fallback")
			result = models.TaskResult{Task: e.Name(), VisitedAt: startedAt, Payload: e.Fallback()}
			err = nil
		}
	}()

	result, err = e.Extract(ctx, env)
	if err != nil {
		return models.TaskResult{}, err
	}
	result.Task = e.Name()
	if result.Payload == nil || result.Payload.Task() != e.Name() {
		logger.Log.Warn().Str("task", string(e.Name())).Msg("extractor returned no usable payload, using fallback")
		result.Success = false
		result.Payload = e.Fallback()
	}
	return result, nil
}
