package store

// SQL query constants organized by entity.
// All SQL lives here — PostgresStore methods reference these constants.

// Rule queries.
const (
	queryCreateRule = `
		INSERT INTO relist_rules (
			user_id, sku, protocol, external_id,
			require_positive_quantity, min_hours_since_last_order, check_active_returns,
			withdraw_publish_delay_seconds, changes,
			decrease_type, decrease_amount, floor_price,
			enabled, next_run_at, created_at, updated_at
		) VALUES (
			@user_id, @sku, @protocol, @external_id,
			@require_positive_quantity, @min_hours_since_last_order, @check_active_returns,
			@withdraw_publish_delay_seconds, @changes,
			@decrease_type, @decrease_amount, @floor_price,
			@enabled, @next_run_at, now(), now()
		)
		RETURNING id, created_at, updated_at`

	queryGetRule = `
		SELECT id, user_id, sku, protocol, external_id,
			require_positive_quantity, min_hours_since_last_order, check_active_returns,
			withdraw_publish_delay_seconds, changes,
			decrease_type, decrease_amount, floor_price,
			enabled, next_run_at, created_at, updated_at
		FROM relist_rules
		WHERE id = $1`

	queryListRules = `
		SELECT id, user_id, sku, protocol, external_id,
			require_positive_quantity, min_hours_since_last_order, check_active_returns,
			withdraw_publish_delay_seconds, changes,
			decrease_type, decrease_amount, floor_price,
			enabled, next_run_at, created_at, updated_at
		FROM relist_rules
		WHERE ($1 = FALSE OR enabled)
		ORDER BY created_at`

	queryUpdateRule = `
		UPDATE relist_rules SET
			sku = @sku,
			require_positive_quantity = @require_positive_quantity,
			min_hours_since_last_order = @min_hours_since_last_order,
			check_active_returns = @check_active_returns,
			withdraw_publish_delay_seconds = @withdraw_publish_delay_seconds,
			changes = @changes,
			decrease_type = @decrease_type,
			decrease_amount = @decrease_amount,
			floor_price = @floor_price,
			enabled = @enabled,
			next_run_at = @next_run_at,
			updated_at = now()
		WHERE id = @id
		RETURNING updated_at`

	queryDeleteRule = `
		DELETE FROM relist_rules WHERE id = $1`

	querySetRuleEnabled = `
		UPDATE relist_rules SET enabled = $2, updated_at = now() WHERE id = $1
		RETURNING id`

	queryListDueRules = `
		SELECT id, user_id, sku, protocol, external_id,
			require_positive_quantity, min_hours_since_last_order, check_active_returns,
			withdraw_publish_delay_seconds, changes,
			decrease_type, decrease_amount, floor_price,
			enabled, next_run_at, created_at, updated_at
		FROM relist_rules
		WHERE enabled AND next_run_at IS NOT NULL AND next_run_at <= $1
		ORDER BY next_run_at
		LIMIT $2`

	queryUpdateRuleNextRun = `
		UPDATE relist_rules SET next_run_at = $2, updated_at = now() WHERE id = $1`
)

// Attempt queries.
const (
	queryCreateAttempt = `
		INSERT INTO relist_attempts (
			rule_id, user_id, state, old_listing_id, new_listing_id,
			skip_reason, error_phase, error_text, phases,
			resume_at, started_at, completed_at
		) VALUES (
			@rule_id, @user_id, @state, @old_listing_id, @new_listing_id,
			@skip_reason, @error_phase, @error_text, @phases,
			@resume_at, @started_at, @completed_at
		)
		RETURNING id`

	queryUpdateAttempt = `
		UPDATE relist_attempts SET
			state = @state,
			new_listing_id = @new_listing_id,
			skip_reason = @skip_reason,
			error_phase = @error_phase,
			error_text = @error_text,
			phases = @phases,
			resume_at = @resume_at,
			completed_at = @completed_at
		WHERE id = @id`

	queryGetAttempt = `
		SELECT id, rule_id, user_id, state, old_listing_id, new_listing_id,
			skip_reason, error_phase, error_text, phases,
			resume_at, started_at, completed_at
		FROM relist_attempts
		WHERE id = $1`

	queryOpenAttempt = `
		SELECT id, rule_id, user_id, state, old_listing_id, new_listing_id,
			skip_reason, error_phase, error_text, phases,
			resume_at, started_at, completed_at
		FROM relist_attempts
		WHERE rule_id = $1 AND state IN ('pending', 'waiting')
		ORDER BY started_at DESC
		LIMIT 1`

	queryListAttemptsByRule = `
		SELECT id, rule_id, user_id, state, old_listing_id, new_listing_id,
			skip_reason, error_phase, error_text, phases,
			resume_at, started_at, completed_at
		FROM relist_attempts
		WHERE rule_id = $1
		ORDER BY started_at DESC
		LIMIT $2`

	queryListResumableAttempts = `
		SELECT id, rule_id, user_id, state, old_listing_id, new_listing_id,
			skip_reason, error_phase, error_text, phases,
			resume_at, started_at, completed_at
		FROM relist_attempts
		WHERE state = 'waiting' AND resume_at IS NOT NULL AND resume_at <= $1
		ORDER BY resume_at
		LIMIT $2`
)

// Fulfillment queries.
const (
	queryCountRecentOrders = `
		SELECT count(*)
		FROM fulfillment_records
		WHERE user_id = $1 AND sku = $2 AND kind = 'order' AND sold_at >= $3`

	queryCountActiveReturns = `
		SELECT count(*)
		FROM fulfillment_records
		WHERE user_id = $1 AND sku = $2 AND kind = 'return' AND opened_at >= $3`

	queryHasShippedSale = `
		SELECT EXISTS(
			SELECT 1
			FROM fulfillment_records
			WHERE user_id = $1 AND external_listing_id = $2 AND kind = 'order'
				AND (shipped_at IS NOT NULL OR delivered_at IS NOT NULL)
		)`
)

// Inventory and credential queries.
const (
	queryFindLocationTag = `
		SELECT location_tag
		FROM inventory_items
		WHERE user_id = $1 AND external_item_id = $2`

	queryRefreshToken = `
		SELECT refresh_token
		FROM marketplace_credentials
		WHERE user_id = $1`
)

// Lease queries. A lease is granted when no row exists or the existing one
// has expired; conflicts are not replaced.
const (
	queryAcquireRuleLease = `
		INSERT INTO rule_leases (listing_ref, lock_holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (listing_ref) DO UPDATE
			SET locked_at   = now(),
				lock_holder = EXCLUDED.lock_holder,
				expires_at  = EXCLUDED.expires_at
			WHERE rule_leases.expires_at < now()
		RETURNING listing_ref`

	queryReleaseRuleLease = `
		DELETE FROM rule_leases WHERE listing_ref = $1 AND lock_holder = $2`
)
