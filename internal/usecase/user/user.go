package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/repository"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/crypto/bcrypt"
)

type userRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type planRepository interface {
	GetPlanByName(ctx context.Context, name string) (*domain.ThumbPlan, error)
	AssignPlan(ctx context.Context, userID string, planID int64) error
}

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", domain.ErrUnauthenticated)
	ErrInvalidUser        = fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	ErrUserExists         = fmt.Errorf("%w: username already taken", domain.ErrValidation)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", domain.ErrNotFound)
	ErrPlanNotFound       = fmt.Errorf("%w: plan not found", domain.ErrNotFound)
)

type UserUsecase struct {
	users  userRepository
	plans  planRepository
	logger *zlog.Zerolog
	cost   int
}

func NewUserUsecase(users userRepository, plans planRepository, logger *zlog.Zerolog) *UserUsecase {
	return &UserUsecase{
		users:  users,
		plans:  plans,
		logger: logger,
		cost:   bcrypt.DefaultCost,
	}
}

// Register creates a user bound to the named plan.
func (u *UserUsecase) Register(ctx context.Context, username, password, planName string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || !utf8.ValidString(username) {
		return nil, ErrInvalidUser
	}

	plan, err := u.plan(ctx, planName)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := u.plans.AssignPlan(ctx, user.ID, plan.ID); err != nil {
		return nil, fmt.Errorf("failed to assign plan: %w", err)
	}

	u.logger.Info().Str("user_id", user.ID).Str("username", username).Str("plan", plan.Name).Msg("User registered")
	return user, nil
}

// SetPlan moves the user to another plan. Existing images keep their thumbnails.
func (u *UserUsecase) SetPlan(ctx context.Context, username, planName string) error {
	user, err := u.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	plan, err := u.plan(ctx, planName)
	if err != nil {
		return err
	}

	if err := u.plans.AssignPlan(ctx, user.ID, plan.ID); err != nil {
		return fmt.Errorf("failed to assign plan: %w", err)
	}

	u.logger.Info().Str("user_id", user.ID).Str("plan", plan.Name).Msg("User plan changed")
	return nil
}

// Authenticate checks the password and returns the user. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (u *UserUsecase) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	if !utf8.ValidString(username) {
		return nil, ErrInvalidCredentials
	}

	user, err := u.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (u *UserUsecase) plan(ctx context.Context, name string) (*domain.ThumbPlan, error) {
	plan, err := u.plans.GetPlanByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrPlanNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrPlanNotFound, name)
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}
