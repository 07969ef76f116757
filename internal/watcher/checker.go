package watcher

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const failureNotifyTimeout = 10 * time.Second

// Checker runs the fetch, compare and notify pipeline once per Run call.
type Checker struct {
	cfg        Config
	fetcher    Fetcher
	normalizer Normalizer
	hasher     Hasher
	store      StateStore
	notifier   Notifier
	clock      Clock
	ids        IDGenerator
	logger     *zap.Logger
}

// New constructs a Checker. Zero-value Config fields fall back to the JLPT
// defaults.
func New(
	cfg Config,
	fetcher Fetcher,
	normalizer Normalizer,
	hasher Hasher,
	store StateStore,
	notifier Notifier,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = utcClock{}
	}
	return &Checker{
		cfg:        cfg.withDefaults(),
		fetcher:    fetcher,
		normalizer: normalizer,
		hasher:     hasher,
		store:      store,
		notifier:   notifier,
		clock:      clock,
		ids:        ids,
		logger:     logger,
	}
}

// Config returns the effective configuration after defaults.
func (c *Checker) Config() Config {
	return c.cfg
}

// Run executes one check. The returned Report is always populated; on failure
// its State is StateFailed and the error is one of *FetchError, *StoreError or
// *NotifyError (or the context error when canceled).
func (c *Checker) Run(ctx context.Context) (Report, error) {
	report := Report{
		RunID:     c.newRunID(),
		StartedAt: c.clock.Now(),
	}
	logger := c.logger.With(zap.String("run_id", report.RunID), zap.String("url", c.cfg.URL))
	logger.Info("page check started")

	err := c.check(ctx, &report, logger)
	report.Duration = c.clock.Now().Sub(report.StartedAt)
	if err != nil {
		failedAt := report.State
		report.State = StateFailed
		report.Error = err.Error()
		logger.Error("page check failed", zap.String("failed_at", string(failedAt)), zap.Error(err))
		c.notifyFailure(ctx, report.RunID, err, logger)
		return report, err
	}

	report.State = StateDone
	logger.Info("page check complete",
		zap.String("classification", string(report.Classification)),
		zap.Bool("changed", report.Changed),
		zap.Bool("persisted", report.Persisted),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (c *Checker) check(ctx context.Context, report *Report, logger *zap.Logger) error {
	c.enter(report, StateFetching, logger)
	resp, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	logger.Debug("page fetched", zap.Int("bytes", len(resp.Body)), zap.Duration("fetch_duration", resp.Duration))

	c.enter(report, StateNormalizing, logger)
	content := c.normalizer.Normalize(string(resp.Body))
	report.Digest = c.hasher.Digest([]byte(content))
	logger.Debug("content normalized",
		zap.Int("raw_bytes", len(resp.Body)),
		zap.Int("normalized_bytes", len(content)),
		zap.String("digest", report.Digest),
	)

	c.enter(report, StateComparing, logger)
	if err := ctx.Err(); err != nil {
		return err
	}
	stored, found, err := c.store.Get(ctx, c.cfg.StateKey)
	if err != nil {
		return asStoreError("get", c.cfg.StateKey, err)
	}
	if found {
		report.PreviousDigest = stored
	}
	detection := Detect(report.Digest, stored, found, content, c.cfg.Keyword)
	report.Classification = detection.Classification
	report.Changed = detection.Changed
	report.Message = c.cfg.MessageFor(detection.Classification)
	logger.Info("change detection complete",
		zap.String("classification", string(detection.Classification)),
		zap.Bool("stored_digest_found", found),
	)

	c.enter(report, StateNotifying, logger)
	if err := c.notifier.Notify(ctx, c.notification(report.RunID, report.Message)); err != nil {
		return asNotifyError(err)
	}
	logger.Info("notification sent", zap.String("message", report.Message))

	if !detection.Changed {
		logger.Debug("digest unchanged; skipping persist")
		return nil
	}

	c.enter(report, StatePersisting, logger)
	if err := c.store.Put(ctx, c.cfg.StateKey, report.Digest); err != nil {
		return asStoreError("put", c.cfg.StateKey, err)
	}
	report.Persisted = true
	c.writeDebugState(ctx, report, logger)
	return nil
}

func (c *Checker) fetch(ctx context.Context) (FetchResponse, error) {
	if err := ctx.Err(); err != nil {
		return FetchResponse{}, err
	}
	resp, err := c.fetcher.Fetch(ctx, FetchRequest{
		URL:       c.cfg.URL,
		UserAgent: c.cfg.UserAgent,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return FetchResponse{}, err
		}
		return FetchResponse{}, asFetchError(c.cfg.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return FetchResponse{}, &FetchError{URL: c.cfg.URL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// writeDebugState records the digest transition. Failures are logged and do
// not fail the run.
func (c *Checker) writeDebugState(ctx context.Context, report *Report, logger *zap.Logger) {
	entries := []struct{ key, value string }{
		{PreviousHashDebugKey, report.PreviousDigest},
		{CurrentHashDebugKey, report.Digest},
		{LastChangeTimestampKey, c.clock.Now().UTC().Format(time.RFC3339)},
	}
	for _, e := range entries {
		if err := c.store.Put(ctx, e.key, e.value); err != nil {
			logger.Warn("debug state write failed", zap.String("key", e.key), zap.Error(err))
		}
	}
}

// notifyFailure makes one attempt to report a failed run.
func (c *Checker) notifyFailure(ctx context.Context, runID string, cause error, logger *zap.Logger) {
	NotifyFailure(ctx, c.cfg, c.notifier, runID, cause, logger)
}

// NotifyFailure makes one best-effort attempt to deliver the failure message
// for cause. It is also used when a run cannot start, for example when the
// state store is unreachable. Delivery errors are only logged.
func NotifyFailure(ctx context.Context, cfg Config, notifier Notifier, runID string, cause error, logger *zap.Logger) {
	if notifier == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	// The run context may already be canceled; the report still deserves a try.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureNotifyTimeout)
	defer cancel()
	n := cfg.notification(runID, cfg.FailureMessage(cause))
	if err := notifier.Notify(sendCtx, n); err != nil {
		logger.Warn("failure notification not delivered", zap.Error(err))
		return
	}
	logger.Info("failure notification sent")
}

func (c *Checker) notification(runID, message string) Notification {
	return c.cfg.notification(runID, message)
}

func (c *Checker) enter(report *Report, state State, logger *zap.Logger) {
	report.State = state
	logger.Debug("state transition", zap.String("state", string(state)))
}

func (c *Checker) newRunID() string {
	if c.ids == nil {
		return ""
	}
	id, err := c.ids.NewID()
	if err != nil {
		c.logger.Warn("run id generation failed", zap.Error(err))
		return ""
	}
	return id
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }
