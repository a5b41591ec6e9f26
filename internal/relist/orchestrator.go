package relist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noakmilo/qventory-backend/internal/ebay"
	"github.com/noakmilo/qventory-backend/internal/metrics"
	"github.com/noakmilo/qventory-backend/internal/store"
	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

const (
	defaultWithdrawPublishDelay = 30 * time.Second
	defaultSettleDelay          = 2 * time.Second
)

// AdapterSelector hands out the protocol adapter for a rule.
type AdapterSelector interface {
	ForRule(rule *domain.RelistRule) ebay.ListingAdapter
}

// AttemptStore persists attempt rows so a cycle interrupted mid-wait can be
// picked back up after a crash.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, a *domain.RelistAttempt) error
	UpdateAttempt(ctx context.Context, a *domain.RelistAttempt) error
	OpenAttempt(ctx context.Context, ruleID string) (*domain.RelistAttempt, error)
}

// Orchestrator runs the relist state machine:
//
//	Start → Validating → Withdrawing → Waiting → Updating → Publishing → Done
//
// One call is one sequential unit of work. Callers must serialize attempts
// per rule (the engine does this with a store lease); overlapping attempts
// on the same external listing could corrupt remote state.
type Orchestrator struct {
	adapters AdapterSelector
	gate     *Gate
	attempts AttemptStore
	log      *slog.Logger
	tracer   trace.Tracer

	defaultDelay time.Duration
	settleDelay  time.Duration
	nowFunc      func() time.Time
	sleepFunc    func(ctx context.Context, d time.Duration) error
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// WithDefaultDelay sets the withdraw-to-publish delay used when a rule does
// not specify one.
func WithDefaultDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.defaultDelay = d
	}
}

// WithSettleDelay sets the pause between an update and publish.
func WithSettleDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.settleDelay = d
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(o *Orchestrator) {
		o.nowFunc = f
	}
}

// WithSleepFunc overrides the wait implementation for testing.
func WithSleepFunc(f func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.sleepFunc = f
	}
}

// New creates an Orchestrator with injected dependencies.
func New(adapters AdapterSelector, gate *Gate, attempts AttemptStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		adapters:     adapters,
		gate:         gate,
		attempts:     attempts,
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:       otel.Tracer("qventory/relist"),
		defaultDelay: defaultWithdrawPublishDelay,
		settleDelay:  defaultSettleDelay,
		nowFunc:      time.Now,
		sleepFunc:    sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs one relist cycle for the rule. The caller receives exactly
// one of: success with the new listing id, a skip with a reason, or a
// failure with a phase-tagged error. Update-phase failures are recorded but
// never fatal — once withdraw has happened, abandoning the cycle would
// leave the listing permanently down.
func (o *Orchestrator) Execute(
	ctx context.Context,
	rule *domain.RelistRule,
	applyChanges bool,
) *domain.RelistAttemptResult {
	start := o.nowFunc()
	defer func() {
		metrics.RelistCycleDuration.Observe(o.nowFunc().Sub(start).Seconds())
	}()

	ctx, span := o.tracer.Start(ctx, "relist.execute", trace.WithAttributes(
		attribute.String("rule.id", rule.ID),
		attribute.String("listing.id", rule.Listing.ID),
		attribute.String("listing.protocol", string(rule.Listing.Protocol)),
	))
	defer span.End()

	result := &domain.RelistAttemptResult{OldListingID: rule.Listing.ID}
	attempt, resumed := o.openOrCreateAttempt(ctx, rule)
	adapter := o.adapters.ForRule(rule)

	// Step 1-2: fetch a fresh snapshot. Always runs, even on resume — the
	// legacy adapter needs it to recover the location tag for relist.
	snap, err := o.timedFetch(ctx, adapter, rule.Listing)
	if err != nil {
		return o.fail(ctx, result, attempt, domain.PhaseFetch, err)
	}

	if !resumed {
		// Step 3: pre-flight checks, zero side effects.
		skip, err := o.validate(ctx, snap, rule)
		if err != nil {
			return o.fail(ctx, result, attempt, domain.PhaseFetch, err)
		}
		if skip != "" {
			result.SkipReason = skip
			o.finishAttempt(ctx, attempt, result, domain.AttemptSkipped)
			metrics.RelistAttemptsTotal.WithLabelValues("skip").Inc()
			o.log.Info("relist skipped", "rule", rule.ID, "reason", skip)
			return result
		}

		// Step 4: withdraw. A listing that is already ended is the
		// idempotency signal left by a prior crashed attempt; absorb it.
		if err := o.withdraw(ctx, adapter, rule, result); err != nil {
			return o.fail(ctx, result, attempt, domain.PhaseWithdraw, err)
		}

		// Persist the resume point before sleeping so a crash during the
		// wait does not strand the listing in the withdrawn state.
		resumeAt := o.nowFunc().Add(rule.Delay(o.defaultDelay))
		attempt.State = domain.AttemptWaiting
		attempt.ResumeAt = &resumeAt
		attempt.Phases = result.Phases
		o.persistAttempt(ctx, attempt)
	} else {
		// A prior attempt already withdrew; carry its sub-result forward.
		result.Phases.Withdraw = attempt.Phases.Withdraw
		o.log.Info("resuming interrupted attempt",
			"rule", rule.ID, "attempt", attempt.ID, "resume_at", attempt.ResumeAt)
	}

	// Step 5: the mandatory inter-phase delay, durable across restarts. An
	// interruption here leaves the attempt open in waiting state so the
	// resume job picks it up; the listing is already down and the only
	// recoverable path forward is completion via publish.
	// No phase failed here, so ErrorPhase stays empty; the attempt row in
	// waiting state is what tells operators where the cycle stopped.
	if err := o.waitUntil(ctx, attempt.ResumeAt); err != nil {
		result.Error = fmt.Sprintf("interrupted during withdraw-publish delay: %v", err)
		o.log.Warn("relist wait interrupted, attempt left open",
			"rule", rule.ID, "attempt", attempt.ID, "error", err)
		return result
	}

	// Step 6: optional edits. Failures are recorded, never fatal.
	updated := o.update(ctx, adapter, rule, applyChanges, result)

	// Step 7: let the prior write propagate before publishing.
	if updated {
		if err := o.sleepFunc(ctx, o.settleDelay); err != nil {
			result.Error = fmt.Sprintf("interrupted during settle delay: %v", err)
			o.log.Warn("relist settle interrupted, attempt left open",
				"rule", rule.ID, "attempt", attempt.ID, "error", err)
			return result
		}
	}

	// Step 8: publish. The one phase with no recovery path — on failure the
	// listing stays withdrawn and the error goes back to the operator.
	newID, err := o.timedPublish(ctx, adapter, rule.Listing)
	result.Phases.Publish.Attempted = true
	if err != nil {
		result.Phases.Publish.Error = err.Error()
		return o.fail(ctx, result, attempt, domain.PhasePublish, err)
	}
	result.Phases.Publish.Success = true
	result.Success = true
	result.NewListingID = newID

	o.finishAttempt(ctx, attempt, result, domain.AttemptSucceeded)
	metrics.RelistAttemptsTotal.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.String("listing.new_id", newID))
	o.log.Info("relist cycle complete",
		"rule", rule.ID, "old_id", rule.Listing.ID, "new_id", newID)

	return result
}

// openOrCreateAttempt reuses an open attempt for the rule (crash recovery)
// or starts a fresh row. Bookkeeping failures are logged, not fatal: losing
// the audit row is better than refusing to relist.
func (o *Orchestrator) openOrCreateAttempt(
	ctx context.Context,
	rule *domain.RelistRule,
) (*domain.RelistAttempt, bool) {
	open, err := o.attempts.OpenAttempt(ctx, rule.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Fresh cycle.
	case err != nil:
		o.log.Error("looking up open attempt failed", "rule", rule.ID, "error", err)
	case open.State == domain.AttemptWaiting && open.Phases.Withdraw.Success:
		return open, true
	}

	attempt := &domain.RelistAttempt{
		RuleID:       rule.ID,
		UserID:       rule.UserID,
		State:        domain.AttemptPending,
		OldListingID: rule.Listing.ID,
		StartedAt:    o.nowFunc(),
	}
	if err := o.attempts.CreateAttempt(ctx, attempt); err != nil {
		o.log.Error("creating attempt row failed", "rule", rule.ID, "error", err)
	}
	return attempt, false
}

func (o *Orchestrator) timedFetch(
	ctx context.Context,
	adapter ebay.ListingAdapter,
	ref domain.ListingRef,
) (*domain.ListingSnapshot, error) {
	ctx, span := o.tracer.Start(ctx, "relist.fetch")
	defer span.End()

	start := o.nowFunc()
	snap, err := adapter.Fetch(ctx, ref)
	metrics.RelistPhaseDuration.WithLabelValues(string(domain.PhaseFetch)).
		Observe(o.nowFunc().Sub(start).Seconds())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return snap, nil
}

func (o *Orchestrator) validate(
	ctx context.Context,
	snap *domain.ListingSnapshot,
	rule *domain.RelistRule,
) (string, error) {
	ctx, span := o.tracer.Start(ctx, "relist.validate")
	defer span.End()

	skip, err := o.gate.Validate(ctx, snap, rule)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("validating listing: %w", err)
	}
	if skip != "" {
		span.SetAttributes(attribute.String("skip_reason", skip))
	}
	return skip, nil
}

func (o *Orchestrator) withdraw(
	ctx context.Context,
	adapter ebay.ListingAdapter,
	rule *domain.RelistRule,
	result *domain.RelistAttemptResult,
) error {
	ctx, span := o.tracer.Start(ctx, "relist.withdraw")
	defer span.End()

	result.Phases.Withdraw.Attempted = true

	start := o.nowFunc()
	err := adapter.Withdraw(ctx, rule.Listing)
	metrics.RelistPhaseDuration.WithLabelValues(string(domain.PhaseWithdraw)).
		Observe(o.nowFunc().Sub(start).Seconds())

	if err != nil {
		if ebay.IsAlreadyEnded(err) {
			metrics.IdempotentWithdrawsTotal.Inc()
			o.log.Info("listing already ended, absorbing withdraw",
				"rule", rule.ID, "listing", rule.Listing.ID)
			result.Phases.Withdraw.Success = true
			return nil
		}
		result.Phases.Withdraw.Error = err.Error()
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	result.Phases.Withdraw.Success = true
	return nil
}

// update applies the ChangeSet when asked to; reports whether an update was
// attempted so the caller knows to settle before publish.
func (o *Orchestrator) update(
	ctx context.Context,
	adapter ebay.ListingAdapter,
	rule *domain.RelistRule,
	applyChanges bool,
	result *domain.RelistAttemptResult,
) bool {
	if !applyChanges || rule.Changes == nil || rule.Changes.IsEmpty() {
		return false
	}

	ctx, span := o.tracer.Start(ctx, "relist.update")
	defer span.End()

	result.Phases.Update.Attempted = true

	start := o.nowFunc()
	err := adapter.Update(ctx, rule.Listing, rule.Changes)
	metrics.RelistPhaseDuration.WithLabelValues(string(domain.PhaseUpdate)).
		Observe(o.nowFunc().Sub(start).Seconds())

	if err != nil {
		// Non-fatal: withdraw already happened, so the only way forward is
		// publish. The stale values stay live rather than nothing at all.
		result.Phases.Update.Error = err.Error()
		span.SetStatus(codes.Error, err.Error())
		o.log.Warn("update failed, continuing to publish",
			"rule", rule.ID, "error", err)
		return true
	}

	result.Phases.Update.Success = true
	return true
}

func (o *Orchestrator) timedPublish(
	ctx context.Context,
	adapter ebay.ListingAdapter,
	ref domain.ListingRef,
) (string, error) {
	ctx, span := o.tracer.Start(ctx, "relist.publish")
	defer span.End()

	start := o.nowFunc()
	newID, err := adapter.Publish(ctx, ref)
	metrics.RelistPhaseDuration.WithLabelValues(string(domain.PhasePublish)).
		Observe(o.nowFunc().Sub(start).Seconds())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return newID, nil
}

// waitUntil sleeps until the persisted resume point, skipping whatever part
// of the delay already elapsed before a restart.
func (o *Orchestrator) waitUntil(ctx context.Context, resumeAt *time.Time) error {
	if resumeAt == nil {
		return nil
	}
	return o.sleepFunc(ctx, resumeAt.Sub(o.nowFunc()))
}

func (o *Orchestrator) fail(
	ctx context.Context,
	result *domain.RelistAttemptResult,
	attempt *domain.RelistAttempt,
	phase domain.RelistPhase,
	err error,
) *domain.RelistAttemptResult {
	result.ErrorPhase = phase
	result.Error = err.Error()
	o.finishAttempt(ctx, attempt, result, domain.AttemptFailed)
	metrics.RelistAttemptsTotal.WithLabelValues("failure").Inc()
	o.log.Error("relist cycle failed",
		"rule", attempt.RuleID, "phase", phase, "error", err)
	return result
}

func (o *Orchestrator) finishAttempt(
	ctx context.Context,
	attempt *domain.RelistAttempt,
	result *domain.RelistAttemptResult,
	state domain.AttemptState,
) {
	now := o.nowFunc()
	attempt.State = state
	attempt.NewListingID = result.NewListingID
	attempt.SkipReason = result.SkipReason
	attempt.ErrorPhase = string(result.ErrorPhase)
	attempt.ErrorText = result.Error
	attempt.Phases = result.Phases
	attempt.ResumeAt = nil
	attempt.CompletedAt = &now
	o.persistAttempt(ctx, attempt)
}

func (o *Orchestrator) persistAttempt(ctx context.Context, attempt *domain.RelistAttempt) {
	if err := o.attempts.UpdateAttempt(ctx, attempt); err != nil {
		o.log.Error("persisting attempt failed",
			"attempt", attempt.ID, "rule", attempt.RuleID, "error", err)
	}
}

// sleepCtx is a cancellable wait.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
