package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/repository"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

type Options struct {
	Secret     string
	MinSeconds int
	MaxSeconds int
	// BaseURL is the public address of the API, without a trailing slash.
	BaseURL    string
}

type IssuedLink struct {
	URL       string
	ExpiresAt time.Time
}

type LinkUsecase struct {
	images         imageRepository
	plans          planRepository
	links          linkRepository
	files          fileLocator
	events         eventPublisher
	signer         *Signer
	opts           Options
	logger         *zlog.Zerolog
	now            func() time.Time
	publishTimeout time.Duration
}

func NewLinkUsecase(
	images imageRepository,
	plans planRepository,
	links linkRepository,
	files fileLocator,
	events eventPublisher,
	opts Options,
	logger *zlog.Zerolog,
) (*LinkUsecase, error) {
	if opts.Secret == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrInvalidOptions)
	}
	if opts.MinSeconds <= 0 || opts.MaxSeconds < opts.MinSeconds {
		return nil, fmt.Errorf("%w: bounds [%d, %d]", ErrInvalidOptions, opts.MinSeconds, opts.MaxSeconds)
	}

	return &LinkUsecase{
		images:         images,
		plans:          plans,
		links:          links,
		files:          files,
		events:         events,
		signer:         NewSigner(opts.Secret),
		opts:           opts,
		logger:         logger,
		now:            time.Now,
		publishTimeout: domain.EventPublishTimeout,
	}, nil
}

// Issue creates a temporary link to imageID valid for expSeconds. Only the
// owner may issue links and only when the owner's plan allows it.
func (u *LinkUsecase) Issue(ctx context.Context, requesterID, imageID string, expSeconds int) (*IssuedLink, error) {
	img, err := u.images.GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	if expSeconds < u.opts.MinSeconds || expSeconds > u.opts.MaxSeconds {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrExpirationOutOfRange, expSeconds, u.opts.MinSeconds, u.opts.MaxSeconds)
	}

	if img.OwnerID != requesterID {
		return nil, ErrNotOwner
	}

	plan, err := u.plans.GetUserPlan(ctx, img.OwnerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserPlanNotFound) {
			return nil, ErrLinksNotAllowed
		}
		return nil, fmt.Errorf("failed to get user plan: %w", err)
	}
	if !plan.AllowExpiringLinks {
		return nil, ErrLinksNotAllowed
	}

	if !img.HasFile() {
		return nil, ErrImageHasNoFile
	}

	now := u.now().UTC()
	link := &domain.TempLink{
		ID:         uuid.New().String(),
		ImageID:    img.ID,
		Expiration: now.Add(time.Duration(expSeconds) * time.Second),
		CreatedAt:  now,
	}

	if err := u.links.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to save link: %w", err)
	}

	u.logger.Info().
		Str("link_id", link.ID).
		Str("image_id", img.ID).
		Time("expires_at", link.Expiration).
		Msg("Temporary link issued")

	event := &domain.Event{
		Type:       domain.EventLinkIssued,
		ImageID:    img.ID,
		OwnerID:    img.OwnerID,
		LinkID:     link.ID,
		ExpiresAt:  link.Expiration,
		OccurredAt: now,
	}
	u.publish(ctx, event)

	return &IssuedLink{
		URL:       u.opts.BaseURL + domain.TempLinkPathPrefix + u.signer.Sign(link.ID),
		ExpiresAt: link.Expiration,
	}, nil
}

// Resolve verifies token and returns the URL of the file it points to.
// The token is checked before any lookup.
func (u *LinkUsecase) Resolve(ctx context.Context, token string) (string, error) {
	id, err := u.signer.Verify(token)
	if err != nil {
		return "", err
	}

	link, err := u.links.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTempLinkNotFound) {
			return "", ErrLinkNotFound
		}
		return "", fmt.Errorf("failed to get link: %w", err)
	}

	if link.Expired(u.now()) {
		return "", ErrLinkExpired
	}

	img, err := u.images.GetByID(ctx, link.ImageID)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			return "", ErrImageNotFound
		}
		return "", fmt.Errorf("failed to get image: %w", err)
	}

	if !img.HasFile() {
		return "", ErrImageHasNoFile
	}

	return u.files.URL(img.FilePath), nil
}

// publish is best effort: the link is already stored, so a slow or failing
// broker only costs publishTimeout and a log line.
func (u *LinkUsecase) publish(ctx context.Context, event *domain.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.publishTimeout)
	defer cancel()

	if err := u.events.Publish(ctx, event); err != nil {
		u.logger.Error().Err(err).Str("link_id", event.LinkID).Msg("Failed to publish link event")
	}
}
