package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/repository"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

type PlansRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewPlansRepository(db *dbpg.DB, retries retry.Strategy) *PlansRepository {
	return &PlansRepository{
		db:      db,
		retries: retries,
	}
}

func (r *PlansRepository) CreateRule(ctx context.Context, height int) (*domain.ThumbRule, error) {
	rule := &domain.ThumbRule{Height: height}

	err := r.db.Master.QueryRowContext(ctx,
		`INSERT INTO thumb_rules (height) VALUES ($1) RETURNING id`, height,
	).Scan(&rule.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", mapError(err))
	}

	return rule, nil
}

// DeleteRule removes a rule from every plan. It fails with ErrRuleInUse
// while any generated thumbnail still references the rule.
func (r *PlansRepository) DeleteRule(ctx context.Context, id int64) error {
	result, err := r.db.Master.ExecContext(ctx, `DELETE FROM thumb_rules WHERE id = $1`, id)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return repository.ErrRuleInUse
		}
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return repository.ErrRuleNotFound
	}

	return nil
}

func (r *PlansRepository) GetRuleByHeight(ctx context.Context, height int) (*domain.ThumbRule, error) {
	row, err := r.db.QueryRowWithRetry(ctx, r.retries,
		`SELECT id, height FROM thumb_rules WHERE height = $1`, height)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule: %w", err)
	}

	var rule domain.ThumbRule
	err = row.Scan(&rule.ID, &rule.Height)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	return &rule, nil
}

func (r *PlansRepository) ListRules(ctx context.Context) ([]domain.ThumbRule, error) {
	rows, err := r.db.QueryWithRetry(ctx, r.retries, `SELECT id, height FROM thumb_rules ORDER BY height`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// CreatePlan inserts the plan and its rules, in the given order, atomically.
func (r *PlansRepository) CreatePlan(ctx context.Context, plan *domain.ThumbPlan) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO thumb_plans (name, keep_original, allow_expiring_links)
		VALUES ($1, $2, $3)
		RETURNING id
	`, plan.Name, plan.KeepOriginal, plan.AllowExpiringLinks).Scan(&plan.ID)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", mapError(err))
	}

	if err := insertPlanRules(ctx, tx, plan.ID, plan.Rules); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan: %w", err)
	}

	return nil
}

// SetPlanRules replaces the plan's rule set. Existing thumbnails are untouched.
func (r *PlansRepository) SetPlanRules(ctx context.Context, planID int64, rules []domain.ThumbRule) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM plan_rules WHERE plan_id = $1`, planID); err != nil {
		return fmt.Errorf("failed to clear plan rules: %w", err)
	}

	if err := insertPlanRules(ctx, tx, planID, rules); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan rules: %w", err)
	}

	return nil
}

func insertPlanRules(ctx context.Context, tx *sql.Tx, planID int64, rules []domain.ThumbRule) error {
	for position, rule := range rules {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO plan_rules (plan_id, rule_id, position) VALUES ($1, $2, $3)`,
			planID, rule.ID, position,
		)
		if err != nil {
			err = mapError(err)
			if errors.Is(err, repository.ErrForeignKeyViolation) {
				return repository.ErrRuleNotFound
			}
			return fmt.Errorf("failed to attach rule %d: %w", rule.ID, err)
		}
	}
	return nil
}

func (r *PlansRepository) GetPlanByName(ctx context.Context, name string) (*domain.ThumbPlan, error) {
	return r.getPlan(ctx, `WHERE name = $1`, name)
}

func (r *PlansRepository) ListPlans(ctx context.Context) ([]domain.ThumbPlan, error) {
	rows, err := r.db.QueryWithRetry(ctx, r.retries, `
		SELECT id, name, keep_original, allow_expiring_links
		FROM thumb_plans
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}

	var plans []domain.ThumbPlan
	for rows.Next() {
		var p domain.ThumbPlan
		if err := rows.Scan(&p.ID, &p.Name, &p.KeepOriginal, &p.AllowExpiringLinks); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}
	rows.Close()

	for i := range plans {
		rules, err := r.planRules(ctx, plans[i].ID)
		if err != nil {
			return nil, err
		}
		plans[i].Rules = rules
	}

	return plans, nil
}

// GetUserPlan returns the plan bound to the user with its rules in stored order.
func (r *PlansRepository) GetUserPlan(ctx context.Context, userID string) (*domain.ThumbPlan, error) {
	plan, err := r.getPlan(ctx, `WHERE id = (SELECT plan_id FROM thumb_users WHERE user_id = $1)`, userID)
	if errors.Is(err, repository.ErrPlanNotFound) {
		return nil, repository.ErrUserPlanNotFound
	}
	return plan, err
}

// AssignPlan binds the user to the plan, replacing any previous binding.
func (r *PlansRepository) AssignPlan(ctx context.Context, userID string, planID int64) error {
	_, err := r.db.Master.ExecContext(ctx, `
		INSERT INTO thumb_users (user_id, plan_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET plan_id = EXCLUDED.plan_id
	`, userID, planID)
	if err != nil {
		return fmt.Errorf("failed to assign plan: %w", mapError(err))
	}
	return nil
}

func (r *PlansRepository) getPlan(ctx context.Context, where string, args ...any) (*domain.ThumbPlan, error) {
	row, err := r.db.QueryRowWithRetry(ctx, r.retries, `
		SELECT id, name, keep_original, allow_expiring_links
		FROM thumb_plans `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan: %w", err)
	}

	var plan domain.ThumbPlan
	err = row.Scan(&plan.ID, &plan.Name, &plan.KeepOriginal, &plan.AllowExpiringLinks)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan plan: %w", err)
	}

	plan.Rules, err = r.planRules(ctx, plan.ID)
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *PlansRepository) planRules(ctx context.Context, planID int64) ([]domain.ThumbRule, error) {
	rows, err := r.db.QueryWithRetry(ctx, r.retries, `
		SELECT r.id, r.height
		FROM plan_rules pr
		JOIN thumb_rules r ON r.id = pr.rule_id
		WHERE pr.plan_id = $1
		ORDER BY pr.position
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

func scanRules(rows *sql.Rows) ([]domain.ThumbRule, error) {
	var rules []domain.ThumbRule
	for rows.Next() {
		var rule domain.ThumbRule
		if err := rows.Scan(&rule.ID, &rule.Height); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}
