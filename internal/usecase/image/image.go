package image

import (
	"context"
	"errors"
	"fmt"
	stdimage "image"
	"path/filepath"
	"strings"
	"time"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/repository"
	"img-thumbs/internal/worker"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

type ImageUsecase struct {
	images         imageRepository
	plans          planRepository
	files          fileStorage
	generator      thumbnailGenerator
	pool           jobRunner
	events         eventPublisher
	logger         *zlog.Zerolog
	now            func() time.Time
	publishTimeout time.Duration
}

func NewImageUsecase(
	images imageRepository,
	plans planRepository,
	files fileStorage,
	generator thumbnailGenerator,
	pool jobRunner,
	events eventPublisher,
	logger *zlog.Zerolog,
) *ImageUsecase {
	return &ImageUsecase{
		images:         images,
		plans:          plans,
		files:          files,
		generator:      generator,
		pool:           pool,
		events:         events,
		logger:         logger,
		now:            time.Now,
		publishTimeout: domain.EventPublishTimeout,
	}
}

type storedObject struct {
	path        string
	data        []byte
	contentType string
}

// CreateRootImage stores an uploaded image together with one thumbnail per
// rule of the owner's plan. Either the whole tree is persisted or nothing is.
func (u *ImageUsecase) CreateRootImage(ctx context.Context, ownerID string, data []byte, filename string) (*domain.ImageTree, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	plan, err := u.plans.GetUserPlan(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserPlanNotFound) {
			return nil, ErrNoPlan
		}
		return nil, fmt.Errorf("failed to get user plan: %w", err)
	}

	format, _, _, err := u.generator.Probe(data)
	if err != nil {
		return nil, err
	}

	ext := fileExtension(filename, format)
	createdAt := u.now().UTC()

	root := domain.Image{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Format:    format,
		CreatedAt: createdAt,
	}

	var objects []storedObject
	if plan.KeepOriginal {
		root.FilePath = objectPath(ownerID, ext)
		objects = append(objects, storedObject{path: root.FilePath, data: data, contentType: format.ContentType()})
	}

	thumbs, err := u.renderThumbnails(ctx, data, format, plan.Rules)
	if err != nil {
		u.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("Thumbnail generation failed")
		return nil, err
	}

	children := make([]domain.Image, len(plan.Rules))
	for i, rule := range plan.Rules {
		children[i] = domain.Image{
			ID:         uuid.New().String(),
			OwnerID:    ownerID,
			FilePath:   objectPath(ownerID, ext),
			ParentID:   root.ID,
			RuleID:     rule.ID,
			RuleHeight: rule.Height,
			Format:     format,
			CreatedAt:  createdAt,
		}
		objects = append(objects, storedObject{path: children[i].FilePath, data: thumbs[i], contentType: format.ContentType()})
	}

	written, err := u.putObjects(ctx, objects)
	if err != nil {
		u.removeObjects(written)
		return nil, err
	}

	if err := u.images.CreateTree(ctx, &root, children); err != nil {
		u.removeObjects(written)
		return nil, fmt.Errorf("failed to save image tree: %w", err)
	}

	u.logger.Info().
		Str("image_id", root.ID).
		Str("owner_id", ownerID).
		Str("plan", plan.Name).
		Int("thumbnails", len(children)).
		Bool("original_kept", root.HasFile()).
		Msg("Image tree created")

	u.publishCreated(ctx, &root, children)

	return &domain.ImageTree{Root: root, Children: children}, nil
}

// ListRootImages returns a page of the owner's uploads, newest first,
// each with its thumbnails.
func (u *ImageUsecase) ListRootImages(ctx context.Context, ownerID string, limit, offset int) ([]domain.ImageTree, error) {
	if limit == 0 {
		limit = domain.DefaultListLimit
	}
	if limit < 0 || limit > domain.MaxListLimit || offset < 0 {
		return nil, ErrInvalidPage
	}

	roots, err := u.images.ListRoots(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	trees := make([]domain.ImageTree, len(roots))
	if len(roots) == 0 {
		return trees, nil
	}

	ids := make([]string, len(roots))
	index := make(map[string]int, len(roots))
	for i, root := range roots {
		ids[i] = root.ID
		index[root.ID] = i
		trees[i].Root = root
	}

	children, err := u.images.ListChildren(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list thumbnails: %w", err)
	}

	for _, child := range children {
		if i, ok := index[child.ParentID]; ok {
			trees[i].Children = append(trees[i].Children, child)
		}
	}

	return trees, nil
}

// renderThumbnails decodes data once and renders one thumbnail per rule
// from the shared raster. Both steps run on the pool.
func (u *ImageUsecase) renderThumbnails(ctx context.Context, data []byte, format domain.ImageFormat, rules []domain.ThumbRule) ([][]byte, error) {
	thumbs := make([][]byte, len(rules))
	if len(rules) == 0 {
		return thumbs, nil
	}

	var src stdimage.Image
	decode := func(context.Context) error {
		img, err := u.generator.Decode(data)
		if err != nil {
			return err
		}
		src = img
		return nil
	}
	if err := u.pool.Run(ctx, []worker.Job{decode})[0]; err != nil {
		return nil, err
	}

	jobs := make([]worker.Job, len(rules))
	for i, rule := range rules {
		jobs[i] = func(context.Context) error {
			out, err := u.generator.Render(src, format, rule.Height)
			if err != nil {
				return fmt.Errorf("rule %d (height %d): %w", rule.ID, rule.Height, err)
			}
			thumbs[i] = out
			return nil
		}
	}

	// The first failure in plan order wins.
	for _, err := range u.pool.Run(ctx, jobs) {
		if err != nil {
			return nil, err
		}
	}

	return thumbs, nil
}

func (u *ImageUsecase) putObjects(ctx context.Context, objects []storedObject) ([]string, error) {
	written := make([]string, 0, len(objects))
	for _, obj := range objects {
		if err := u.files.Put(ctx, obj.path, obj.data, obj.contentType); err != nil {
			return written, fmt.Errorf("failed to store %s: %w", obj.path, err)
		}
		written = append(written, obj.path)
	}
	return written, nil
}

// removeObjects runs on a fresh context so cleanup survives a canceled request.
func (u *ImageUsecase) removeObjects(paths []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, path := range paths {
		if err := u.files.Delete(ctx, path); err != nil && !errors.Is(err, repository.ErrFileNotFound) {
			u.logger.Error().Err(err).Str("path", path).Msg("Failed to remove orphaned object")
		}
	}
}

func (u *ImageUsecase) publishCreated(ctx context.Context, root *domain.Image, children []domain.Image) {
	ids := make([]string, len(children))
	for i, child := range children {
		ids[i] = child.ID
	}

	event := &domain.Event{
		Type:       domain.EventImageCreated,
		ImageID:    root.ID,
		OwnerID:    root.OwnerID,
		Children:   ids,
		OccurredAt: root.CreatedAt,
	}

	// The tree is already stored; a slow broker only costs publishTimeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.publishTimeout)
	defer cancel()

	if err := u.events.Publish(ctx, event); err != nil {
		u.logger.Error().Err(err).Str("image_id", root.ID).Msg("Failed to publish image event")
	}
}

func objectPath(ownerID, ext string) string {
	return domain.PathPrefixPhotos + ownerID + "/" + uuid.New().String() + "." + ext
}

func fileExtension(filename string, format domain.ImageFormat) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		return string(format)
	}
	return ext
}
