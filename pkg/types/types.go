// Package domain defines the core business types for the qventory relist backend.
package domain

import (
	"time"
)

// Protocol identifies which generation of the marketplace listing API a
// listing lives on. It is decided once, when the rule is created, and never
// re-inferred from the raw reference afterwards.
type Protocol string

// Protocol constants.
const (
	// ProtocolOffer is the modern REST/JSON Sell API (offer + inventory item).
	ProtocolOffer Protocol = "offer"
	// ProtocolTrading is the legacy XML-envelope Trading API.
	ProtocolTrading Protocol = "trading"
)

// ListingRef addresses exactly one external listing in exactly one protocol
// family.
type ListingRef struct {
	Protocol Protocol `json:"protocol" db:"protocol"`
	ID       string   `json:"id"       db:"external_id"`
}

// DecreaseType selects how a scheduled price decrease is computed.
type DecreaseType string

// Decrease type constants.
const (
	DecreasePercent DecreaseType = "percent"
	DecreaseFixed   DecreaseType = "fixed"
	DecreaseNone    DecreaseType = ""
)

// ChangeSet holds pending edits to apply mid-cycle. Every field is optional
// and independently applicable; a nil field means "leave unchanged", never
// "clear". Price and Quantity are commercial terms; Title, Description and
// Condition are content.
type ChangeSet struct {
	Price       *float64 `json:"price,omitempty"`
	Quantity    *int     `json:"quantity,omitempty"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Condition   *string  `json:"condition,omitempty"`
}

// HasCommercial reports whether the ChangeSet carries price or quantity edits.
func (c *ChangeSet) HasCommercial() bool {
	return c != nil && (c.Price != nil || c.Quantity != nil)
}

// HasContent reports whether the ChangeSet carries title, description or
// condition edits.
func (c *ChangeSet) HasContent() bool {
	return c != nil && (c.Title != nil || c.Description != nil || c.Condition != nil)
}

// IsEmpty reports whether the ChangeSet carries no edits at all.
func (c *ChangeSet) IsEmpty() bool {
	return !c.HasCommercial() && !c.HasContent()
}

// RelistRule is the long-lived policy for cycling one external listing.
type RelistRule struct {
	ID     string     `json:"id"      db:"id"`
	UserID string     `json:"user_id" db:"user_id"`
	SKU    string     `json:"sku"     db:"sku"`
	Listing ListingRef `json:"listing"`

	// Pre-flight safety toggles.
	RequirePositiveQuantity bool `json:"require_positive_quantity" db:"require_positive_quantity"`
	MinHoursSinceLastOrder  int  `json:"min_hours_since_last_order,omitempty" db:"min_hours_since_last_order"`
	CheckActiveReturns      bool `json:"check_active_returns" db:"check_active_returns"`

	// Seconds to wait between withdraw and publish. 0 means the default (30s).
	WithdrawPublishDelay int `json:"withdraw_publish_delay_seconds,omitempty" db:"withdraw_publish_delay_seconds"`

	// Pending edits applied when the caller asks for them.
	Changes *ChangeSet `json:"changes,omitempty"`

	// Scheduled price decrease policy, consumed by the engine when a rule
	// runs on its own cadence rather than by explicit trigger.
	DecreaseType   DecreaseType `json:"decrease_type,omitempty"   db:"decrease_type"`
	DecreaseAmount float64      `json:"decrease_amount,omitempty" db:"decrease_amount"`
	FloorPrice     float64      `json:"floor_price,omitempty"     db:"floor_price"`

	Enabled   bool       `json:"enabled"                db:"enabled"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"  db:"next_run_at"`
	CreatedAt time.Time  `json:"created_at"             db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"             db:"updated_at"`
}

// Delay returns the configured withdraw-to-publish delay as a Duration,
// falling back to the given default when unset.
func (r *RelistRule) Delay(fallback time.Duration) time.Duration {
	if r.WithdrawPublishDelay <= 0 {
		return fallback
	}
	return time.Duration(r.WithdrawPublishDelay) * time.Second
}

// ListingSnapshot is the transient view of an external listing fetched fresh
// for each attempt. It is never persisted; it only answers validation
// questions and, on the legacy protocol, carries the seller's custom
// warehouse/location tag that must be re-injected during relist.
type ListingSnapshot struct {
	Ref         ListingRef `json:"ref"`
	SKU         string     `json:"sku"`
	Title       string     `json:"title"`
	Price       float64    `json:"price"`
	Currency    string     `json:"currency"`
	Quantity    int        `json:"quantity"`
	LocationTag string     `json:"location_tag,omitempty"`
	Status      string     `json:"status,omitempty"`
}

// RelistPhase names one step of the relist cycle, used to tag hard failures.
type RelistPhase string

// Relist phase constants.
const (
	PhaseFetch    RelistPhase = "fetch"
	PhaseWithdraw RelistPhase = "withdraw"
	PhaseUpdate   RelistPhase = "update"
	PhasePublish  RelistPhase = "publish"
)

// PhaseResult records the outcome of one mutating phase for observability.
type PhaseResult struct {
	Attempted bool   `json:"attempted"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// AttemptPhases groups the per-phase sub-results of one cycle.
type AttemptPhases struct {
	Withdraw PhaseResult `json:"withdraw"`
	Update   PhaseResult `json:"update"`
	Publish  PhaseResult `json:"publish"`
}

// RelistAttemptResult is what the caller receives from one orchestration
// call: success with a new id, skip with a reason, or failure with a
// phase-tagged error. There is no partial-success ambiguity — either publish
// succeeded and NewListingID is set, or it did not.
type RelistAttemptResult struct {
	Success      bool          `json:"success"`
	OldListingID string        `json:"old_listing_id"`
	NewListingID string        `json:"new_listing_id,omitempty"`
	SkipReason   string        `json:"skip_reason,omitempty"`
	Phases       AttemptPhases `json:"details"`
	ErrorPhase   RelistPhase   `json:"error_phase,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Skipped reports whether validation declined the cycle before any mutating
// call was issued.
func (r *RelistAttemptResult) Skipped() bool {
	return r.SkipReason != ""
}

// AttemptState tracks a persisted attempt through the relist state machine.
type AttemptState string

// Attempt state constants.
const (
	AttemptPending   AttemptState = "pending"
	AttemptWaiting   AttemptState = "waiting"
	AttemptSucceeded AttemptState = "succeeded"
	AttemptSkipped   AttemptState = "skipped"
	AttemptFailed    AttemptState = "failed"
)

// Open reports whether the attempt has not yet reached a terminal state.
func (s AttemptState) Open() bool {
	return s == AttemptPending || s == AttemptWaiting
}

// RelistAttempt is the persisted record of one orchestration call. The
// ResumeAt timestamp makes the withdraw-to-publish wait durable: a process
// that crashes mid-wait picks the attempt back up and sleeps only the
// remaining portion.
type RelistAttempt struct {
	ID           string       `json:"id"                       db:"id"`
	RuleID       string       `json:"rule_id"                  db:"rule_id"`
	UserID       string       `json:"user_id"                  db:"user_id"`
	State        AttemptState `json:"state"                    db:"state"`
	OldListingID string       `json:"old_listing_id"           db:"old_listing_id"`
	NewListingID string       `json:"new_listing_id,omitempty" db:"new_listing_id"`
	SkipReason   string       `json:"skip_reason,omitempty"    db:"skip_reason"`
	ErrorPhase   string       `json:"error_phase,omitempty"    db:"error_phase"`
	ErrorText    string       `json:"error,omitempty"          db:"error_text"`
	Phases       AttemptPhases `json:"details"                 db:"phases"`
	ResumeAt     *time.Time   `json:"resume_at,omitempty"      db:"resume_at"`
	StartedAt    time.Time    `json:"started_at"               db:"started_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"   db:"completed_at"`
}
