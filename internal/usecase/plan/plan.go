package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/repository"

	"github.com/wb-go/wbf/zlog"
)

type planRepository interface {
	CreateRule(ctx context.Context, height int) (*domain.ThumbRule, error)
	DeleteRule(ctx context.Context, id int64) error
	GetRuleByHeight(ctx context.Context, height int) (*domain.ThumbRule, error)
	ListRules(ctx context.Context) ([]domain.ThumbRule, error)
	CreatePlan(ctx context.Context, plan *domain.ThumbPlan) error
	SetPlanRules(ctx context.Context, planID int64, rules []domain.ThumbRule) error
	GetPlanByName(ctx context.Context, name string) (*domain.ThumbPlan, error)
	ListPlans(ctx context.Context) ([]domain.ThumbPlan, error)
}

var (
	ErrInvalidHeight = fmt.Errorf("%w: rule height must be positive", domain.ErrValidation)
	ErrInvalidName   = fmt.Errorf("%w: plan name is required", domain.ErrValidation)
	ErrRuleExists    = fmt.Errorf("%w: rule already exists", domain.ErrValidation)
	ErrPlanExists    = fmt.Errorf("%w: plan already exists", domain.ErrValidation)
	ErrRuleInUse     = fmt.Errorf("%w: rule is used by existing thumbnails", domain.ErrValidation)
	ErrRuleNotFound  = fmt.Errorf("%w: rule not found", domain.ErrNotFound)
	ErrPlanNotFound  = fmt.Errorf("%w: plan not found", domain.ErrNotFound)
)

// PlanSpec describes a plan in terms of rule heights.
type PlanSpec struct {
	Name               string
	KeepOriginal       bool
	AllowExpiringLinks bool
	Heights            []int
}

// DefaultPlans are created by Seed.
var DefaultPlans = []PlanSpec{
	{Name: domain.PlanBasic, Heights: []int{200}},
	{Name: domain.PlanPremium, KeepOriginal: true, Heights: []int{200, 400}},
	{Name: domain.PlanEnterprise, KeepOriginal: true, AllowExpiringLinks: true, Heights: []int{200, 400}},
}

type PlanUsecase struct {
	plans  planRepository
	logger *zlog.Zerolog
}

func NewPlanUsecase(plans planRepository, logger *zlog.Zerolog) *PlanUsecase {
	return &PlanUsecase{
		plans:  plans,
		logger: logger,
	}
}

func (u *PlanUsecase) AddRule(ctx context.Context, height int) (*domain.ThumbRule, error) {
	if height <= 0 {
		return nil, ErrInvalidHeight
	}

	rule, err := u.plans.CreateRule(ctx, height)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: height %d", ErrRuleExists, height)
		}
		return nil, fmt.Errorf("failed to add rule: %w", err)
	}

	u.logger.Info().Int64("rule_id", rule.ID).Int("height", height).Msg("Rule added")
	return rule, nil
}

// DeleteRule removes the rule with the given height from the catalog and from
// every plan. Rules that produced thumbnails cannot be deleted.
func (u *PlanUsecase) DeleteRule(ctx context.Context, height int) error {
	rule, err := u.rule(ctx, height)
	if err != nil {
		return err
	}

	if err := u.plans.DeleteRule(ctx, rule.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrRuleInUse):
			return fmt.Errorf("%w: height %d", ErrRuleInUse, height)
		case errors.Is(err, repository.ErrRuleNotFound):
			return fmt.Errorf("%w: height %d", ErrRuleNotFound, height)
		default:
			return fmt.Errorf("failed to delete rule: %w", err)
		}
	}

	u.logger.Info().Int64("rule_id", rule.ID).Int("height", height).Msg("Rule deleted")
	return nil
}

func (u *PlanUsecase) ListRules(ctx context.Context) ([]domain.ThumbRule, error) {
	rules, err := u.plans.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

func (u *PlanUsecase) AddPlan(ctx context.Context, spec PlanSpec) (*domain.ThumbPlan, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	rules, err := u.rules(ctx, spec.Heights)
	if err != nil {
		return nil, err
	}

	plan := &domain.ThumbPlan{
		Name:               name,
		KeepOriginal:       spec.KeepOriginal,
		AllowExpiringLinks: spec.AllowExpiringLinks,
		Rules:              rules,
	}

	if err := u.plans.CreatePlan(ctx, plan); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, fmt.Errorf("%w: %q", ErrPlanExists, name)
		case errors.Is(err, repository.ErrRuleNotFound):
			return nil, ErrRuleNotFound
		default:
			return nil, fmt.Errorf("failed to add plan: %w", err)
		}
	}

	u.logger.Info().Int64("plan_id", plan.ID).Str("plan", name).Ints("heights", spec.Heights).Msg("Plan added")
	return plan, nil
}

// SetPlanRules replaces the plan's rule set. Thumbnails already generated
// under the old set are kept as they are.
func (u *PlanUsecase) SetPlanRules(ctx context.Context, name string, heights []int) (*domain.ThumbPlan, error) {
	plan, err := u.plan(ctx, name)
	if err != nil {
		return nil, err
	}

	rules, err := u.rules(ctx, heights)
	if err != nil {
		return nil, err
	}

	if err := u.plans.SetPlanRules(ctx, plan.ID, rules); err != nil {
		if errors.Is(err, repository.ErrRuleNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to set plan rules: %w", err)
	}

	plan.Rules = rules
	u.logger.Info().Int64("plan_id", plan.ID).Str("plan", plan.Name).Ints("heights", heights).Msg("Plan rules replaced")
	return plan, nil
}

func (u *PlanUsecase) ListPlans(ctx context.Context) ([]domain.ThumbPlan, error) {
	plans, err := u.plans.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// Seed creates the default rules and plans. Existing ones are left untouched,
// so running it twice is harmless.
func (u *PlanUsecase) Seed(ctx context.Context) error {
	for _, height := range domain.DefaultRuleHeights {
		if _, err := u.AddRule(ctx, height); err != nil && !errors.Is(err, ErrRuleExists) {
			return err
		}
	}

	for _, spec := range DefaultPlans {
		if _, err := u.AddPlan(ctx, spec); err != nil && !errors.Is(err, ErrPlanExists) {
			return err
		}
	}

	return nil
}

func (u *PlanUsecase) rule(ctx context.Context, height int) (*domain.ThumbRule, error) {
	rule, err := u.plans.GetRuleByHeight(ctx, height)
	if err != nil {
		if errors.Is(err, repository.ErrRuleNotFound) {
			return nil, fmt.Errorf("%w: height %d", ErrRuleNotFound, height)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// rules resolves heights to rules, dropping duplicates and keeping order.
func (u *PlanUsecase) rules(ctx context.Context, heights []int) ([]domain.ThumbRule, error) {
	seen := make(map[int]bool, len(heights))
	rules := make([]domain.ThumbRule, 0, len(heights))

	for _, height := range heights {
		if seen[height] {
			continue
		}
		seen[height] = true

		rule, err := u.rule(ctx, height)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}

	return rules, nil
}

func (u *PlanUsecase) plan(ctx context.Context, name string) (*domain.ThumbPlan, error) {
	plan, err := u.plans.GetPlanByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrPlanNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrPlanNotFound, name)
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}
