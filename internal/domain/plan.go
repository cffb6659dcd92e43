package domain

import "time"

type ThumbRule struct {
	ID     int64
	Height int
}

// ThumbPlan bundles the thumbnail rules a user gets with two entitlement flags.
// Rules are kept in the plan's stored order.
type ThumbPlan struct {
	ID                 int64
	Name               string
	KeepOriginal       bool
	AllowExpiringLinks bool
	Rules              []ThumbRule
}

type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Default plans created by the bootstrap command.
const (
	PlanBasic      = "Basic"
	PlanPremium    = "Premium"
	PlanEnterprise = "Enterprise"
)

var DefaultRuleHeights = []int{200, 400}
