// Package testrun runs the simulated discovery and extraction tests of the
// wizard. Each test feeds a canned payload through the real parsers so the
// result reflects the user's configuration without touching the network.
package testrun

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Sriram-PR/source-wizard/pkg/config"
	"github.com/Sriram-PR/source-wizard/pkg/llm"
	wlog "github.com/Sriram-PR/source-wizard/pkg/log"
	"github.com/Sriram-PR/source-wizard/pkg/models"
	"github.com/Sriram-PR/source-wizard/pkg/preview"
	"github.com/Sriram-PR/source-wizard/pkg/utils"
	"github.com/Sriram-PR/source-wizard/pkg/wizard"
)

var (
	ErrJobNotFound   = errors.New("test job not found")
	ErrNotRetryable  = errors.New("only failed or cancelled tests can be retried")
	ErrPhaseDisabled = errors.New("phase is disabled")
	ErrNothingToRun  = errors.New("both discovery and extraction are disabled")
)

// Runner starts simulated test jobs and tracks them in a JobManager.
type Runner struct {
	cfg      config.TestRunConfig
	jobs     *JobManager
	limiter  *rate.Limiter
	renderer *preview.Renderer
	tok      *llm.Tokenizer
	log      *logrus.Entry

	mu  sync.Mutex // guards rnd
	rnd *rand.Rand
}

// NewRunner creates a runner. tok may be nil, in which case LLM chunk plans use estimates.
func NewRunner(cfg config.TestRunConfig, tok *llm.Tokenizer, log *logrus.Entry) *Runner {
	if log == nil {
		log = wlog.Discard()
	}
	log = log.WithField("component", "testrun")

	limit := rate.Inf
	burst := 1
	if cfg.RunsPerMin > 0 {
		limit = rate.Limit(float64(cfg.RunsPerMin) / 60)
		burst = cfg.RunsPerMin
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Runner{
		cfg:      cfg,
		jobs:     NewJobManager(),
		limiter:  rate.NewLimiter(limit, burst),
		renderer: preview.NewRenderer(cfg.MaxPreviewKB*1024, log),
		tok:      tok,
		log:      log,
		rnd:      rand.New(rand.NewSource(seed)),
	}
}

// Jobs exposes the job manager for status queries.
func (r *Runner) Jobs() *JobManager { return r.jobs }

// Start launches a test of phase against a snapshot of cfg. A job already
// active for the same phase is cancelled.
func (r *Runner) Start(cfg models.SourceConfig, phase wizard.Phase) (Job, error) {
	return r.start(cfg, phase, "")
}

func (r *Runner) start(cfg models.SourceConfig, phase wizard.Phase, retryOf string) (Job, error) {
	technique, err := techniqueFor(cfg, phase)
	if err != nil {
		return Job{}, err
	}
	snapshot, err := cfg.Clone()
	if err != nil {
		return Job{}, err
	}
	if r.cfg.RetainFor > 0 {
		if n := r.jobs.Sweep(time.Now().Add(-r.cfg.RetainFor)); n > 0 {
			r.log.WithField("removed", n).Debug("Swept finished test jobs")
		}
	}

	job, superseded := r.jobs.CreateJob(snapshot, phase, technique, retryOf)
	logger := r.log.WithFields(logrus.Fields{"job_id": job.ID, "phase": phase, "technique": technique})
	if superseded != "" {
		logger.WithField("superseded", superseded).Info("Cancelled previous test of this phase")
	}
	logger.Info("Test job started")

	go r.run(job, logger)
	snap, _ := r.jobs.GetJob(job.ID)
	return snap, nil
}

func techniqueFor(cfg models.SourceConfig, phase wizard.Phase) (models.Technique, error) {
	switch phase {
	case wizard.PhaseDiscovery:
		if !cfg.Discovery.Enabled {
			return "", fmt.Errorf("%w: %s", ErrPhaseDisabled, phase)
		}
		if !cfg.Discovery.Matches() {
			return "", fmt.Errorf("%w: discovery config does not match technique %q", utils.ErrConfigValidation, cfg.Discovery.Technique)
		}
		return cfg.Discovery.Technique, nil
	case wizard.PhaseExtraction:
		if !cfg.Extraction.Enabled {
			return "", fmt.Errorf("%w: %s", ErrPhaseDisabled, phase)
		}
		if !cfg.Extraction.Matches() {
			return "", fmt.Errorf("%w: extraction config does not match technique %q", utils.ErrConfigValidation, cfg.Extraction.Technique)
		}
		return cfg.Extraction.Technique, nil
	default:
		return "", fmt.Errorf("%w: phase %q", utils.ErrInvalidAction, phase)
	}
}

func (r *Runner) run(job *Job, logger *logrus.Entry) {
	if err := r.limiter.Wait(job.ctx); err != nil {
		logger.Debug("Test job cancelled while waiting for a slot")
		return
	}
	if !r.jobs.markRunning(job.ID) {
		return
	}
	if err := sleepCtx(job.ctx, r.latency()); err != nil {
		logger.Debug("Test job cancelled during delay")
		return
	}

	out, err := r.simulate(job.cfg, job.Phase)
	if err == nil && r.shouldFail() {
		err = utils.WrapErrorf(utils.ErrSimulatedFailure, "%s test of %s did not complete", job.Phase, job.Technique)
	}

	result := &models.TestResult{
		JobID:     job.ID,
		Technique: job.Technique,
		RanAt:     time.Now().UTC(),
		Status:    models.TestStatusSuccess,
		Summary:   out.Summary,
		URLs:      out.URLs,
		Items:     out.Items,
		Markdown:  out.Markdown,
	}
	if err != nil {
		result.Status = models.TestStatusFailed
		result.Error = err.Error()
	}

	if !r.jobs.finish(job.ID, result, err) {
		logger.Debug("Discarded result of cancelled test job")
		return
	}
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error":      err,
			"error_type": utils.CategorizeError(err),
		}).Warn("Test job failed")
		return
	}
	logger.WithField("summary", out.Summary).Info("Test job completed")
}

func (r *Runner) latency() time.Duration {
	d := r.cfg.Delay
	if r.cfg.Jitter > 0 {
		r.mu.Lock()
		d += time.Duration(r.rnd.Int63n(int64(r.cfg.Jitter)))
		r.mu.Unlock()
	}
	return d
}

func (r *Runner) shouldFail() bool {
	if r.cfg.FailureRate <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64() < r.cfg.FailureRate
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Status returns a snapshot of a job.
func (r *Runner) Status(jobID string) (Job, error) {
	job, ok := r.jobs.GetJob(jobID)
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}

// Wait blocks until the job stops or ctx ends, then returns its snapshot.
func (r *Runner) Wait(ctx context.Context, jobID string) (Job, error) {
	job, ok := r.jobs.internal(jobID)
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	select {
	case <-job.done:
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
	return r.Status(jobID)
}

// Cancel stops a pending or running job. Its result, if any arrives, is dropped.
func (r *Runner) Cancel(jobID string) bool {
	ok := r.jobs.CancelJob(jobID)
	if ok {
		r.log.WithField("job_id", jobID).Info("Test job cancelled")
	}
	return ok
}

// Retry starts a fresh job with the config and phase of a failed or cancelled one.
func (r *Runner) Retry(jobID string) (Job, error) {
	job, ok := r.jobs.internal(jobID)
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	snap, _ := r.jobs.GetJob(jobID)
	if snap.Status != JobStatusFailed && snap.Status != JobStatusCancelled {
		return Job{}, fmt.Errorf("%w: job %s is %s", ErrNotRetryable, jobID, snap.Status)
	}
	return r.start(job.cfg, snap.Phase, jobID)
}

// RunAll tests every enabled phase concurrently and waits for both. A failed
// test is reported in its result, not as an error.
func (r *Runner) RunAll(ctx context.Context, cfg models.SourceConfig) (*models.TestResults, error) {
	var phases []wizard.Phase
	if cfg.Discovery.Enabled {
		phases = append(phases, wizard.PhaseDiscovery)
	}
	if cfg.Extraction.Enabled {
		phases = append(phases, wizard.PhaseExtraction)
	}
	if len(phases) == 0 {
		return nil, ErrNothingToRun
	}

	results := make([]*models.TestResult, len(phases))
	g, gctx := errgroup.WithContext(ctx)
	for i, phase := range phases {
		g.Go(func() error {
			job, err := r.Start(cfg, phase)
			if err != nil {
				return err
			}
			done, err := r.Wait(gctx, job.ID)
			if err != nil {
				r.Cancel(job.ID)
				return err
			}
			results[i] = done.Result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &models.TestResults{}
	for i, phase := range phases {
		if phase == wizard.PhaseDiscovery {
			out.Discovery = results[i]
		} else {
			out.Extraction = results[i]
		}
	}
	return out, nil
}

// ResultAction turns a finished job into the wizard action that caches its result.
func ResultAction(job Job) (wizard.SetTestResult, bool) {
	if job.Result == nil {
		return wizard.SetTestResult{}, false
	}
	return wizard.SetTestResult{Phase: job.Phase, Result: job.Result}, true
}

// Close cancels every active job.
func (r *Runner) Close() {
	r.jobs.CancelAll()
}
