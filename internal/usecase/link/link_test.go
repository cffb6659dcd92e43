package link

import (
	"context"
	"strings"
	"testing"
	"time"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

const (
	baseURL   = "https://thumbs.test"
	publicURL = "http://cdn.test/thumbs"
)

type fakeImages map[string]*domain.Image

func (f fakeImages) GetByID(_ context.Context, id string) (*domain.Image, error) {
	img, ok := f[id]
	if !ok {
		return nil, repository.ErrImageNotFound
	}
	return img, nil
}

type fakePlans map[string]*domain.ThumbPlan

func (f fakePlans) GetUserPlan(_ context.Context, userID string) (*domain.ThumbPlan, error) {
	plan, ok := f[userID]
	if !ok {
		return nil, repository.ErrUserPlanNotFound
	}
	return plan, nil
}

type fakeLinks struct {
	links map[string]*domain.TempLink
	gets  int
}

func (f *fakeLinks) Create(_ context.Context, link *domain.TempLink) error {
	f.links[link.ID] = link
	return nil
}

func (f *fakeLinks) GetByID(_ context.Context, id string) (*domain.TempLink, error) {
	f.gets++
	link, ok := f.links[id]
	if !ok {
		return nil, repository.ErrTempLinkNotFound
	}
	return link, nil
}

type fakeFiles struct{}

func (fakeFiles) URL(path string) string {
	return publicURL + "/" + path
}

type fakePublisher struct {
	events []*domain.Event
	hang   bool
}

func (p *fakePublisher) Publish(ctx context.Context, event *domain.Event) error {
	p.events = append(p.events, event)
	if p.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

type fixture struct {
	usecase   *LinkUsecase
	links     *fakeLinks
	publisher *fakePublisher
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	zlog.Init()

	images := fakeImages{
		"img-ent":      {ID: "img-ent", OwnerID: "ent", FilePath: "photos/ent/a.png"},
		"img-ent-bare": {ID: "img-ent-bare", OwnerID: "ent"},
		"img-basic":    {ID: "img-basic", OwnerID: "basic", FilePath: "photos/basic/b.png"},
		"img-nobody":   {ID: "img-nobody", OwnerID: "nobody", FilePath: "photos/nobody/c.png"},
	}
	plans := fakePlans{
		"ent":   {Name: domain.PlanEnterprise, KeepOriginal: true, AllowExpiringLinks: true},
		"basic": {Name: domain.PlanBasic},
	}

	f := &fixture{
		links:     &fakeLinks{links: make(map[string]*domain.TempLink)},
		publisher: &fakePublisher{},
		clock:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	uc, err := NewLinkUsecase(images, plans, f.links, fakeFiles{}, f.publisher, Options{
		Secret:     "0123456789abcdef",
		MinSeconds: 300,
		MaxSeconds: 30000,
		BaseURL:    baseURL,
	}, &zlog.Logger)
	require.NoError(t, err)

	uc.now = func() time.Time { return f.clock }
	f.usecase = uc
	return f
}

func tokenOf(t *testing.T, url string) string {
	t.Helper()
	prefix := baseURL + domain.TempLinkPathPrefix
	require.True(t, strings.HasPrefix(url, prefix), url)
	return strings.TrimPrefix(url, prefix)
}

func TestIssueAndResolve(t *testing.T) {
	f := newFixture(t)

	issued, err := f.usecase.Issue(context.Background(), "ent", "img-ent", 600)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Add(600*time.Second), issued.ExpiresAt)

	url, err := f.usecase.Resolve(context.Background(), tokenOf(t, issued.URL))
	require.NoError(t, err)
	assert.Equal(t, publicURL+"/photos/ent/a.png", url)

	// Links are reusable until they expire.
	url2, err := f.usecase.Resolve(context.Background(), tokenOf(t, issued.URL))
	require.NoError(t, err)
	assert.Equal(t, url, url2)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.EventLinkIssued, f.publisher.events[0].Type)
	assert.Equal(t, "img-ent", f.publisher.events[0].ImageID)
}

func TestResolveExpiryBoundary(t *testing.T) {
	f := newFixture(t)

	issued, err := f.usecase.Issue(context.Background(), "ent", "img-ent", 300)
	require.NoError(t, err)
	token := tokenOf(t, issued.URL)

	f.clock = issued.ExpiresAt.Add(-time.Nanosecond)
	_, err = f.usecase.Resolve(context.Background(), token)
	assert.NoError(t, err)

	f.clock = issued.ExpiresAt
	_, err = f.usecase.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrLinkExpired)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveTamperedTokenSkipsLookup(t *testing.T) {
	f := newFixture(t)

	issued, err := f.usecase.Issue(context.Background(), "ent", "img-ent", 300)
	require.NoError(t, err)
	token := []byte(tokenOf(t, issued.URL))

	last := len(token) - 1
	if token[last] == 'f' {
		token[last] = 'e'
	} else {
		token[last] = 'f'
	}

	_, err = f.usecase.Resolve(context.Background(), string(token))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, f.links.gets)
}

func TestResolveUnknownLink(t *testing.T) {
	f := newFixture(t)

	token := f.usecase.signer.Sign("00000000-0000-0000-0000-000000000000")
	_, err := f.usecase.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrLinkNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIssueExpirationBounds(t *testing.T) {
	tests := []struct {
		exp     int
		wantErr error
	}{
		{exp: 299, wantErr: domain.ErrValidation},
		{exp: 300},
		{exp: 30000},
		{exp: 30001, wantErr: domain.ErrValidation},
		{exp: 0, wantErr: domain.ErrValidation},
		{exp: -5, wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		f := newFixture(t)
		_, err := f.usecase.Issue(context.Background(), "ent", "img-ent", tt.exp)
		if tt.wantErr == nil {
			assert.NoError(t, err, "exp=%d", tt.exp)
		} else {
			assert.ErrorIs(t, err, tt.wantErr, "exp=%d", tt.exp)
		}
	}
}

func TestIssueErrors(t *testing.T) {
	tests := []struct {
		name      string
		requester string
		imageID   string
		exp       int
		wantErr   error
	}{
		{name: "unknown image", requester: "ent", imageID: "missing", exp: 300, wantErr: domain.ErrNotFound},
		{name: "unknown image wins over bad exp", requester: "ent", imageID: "missing", exp: 1, wantErr: domain.ErrNotFound},
		{name: "other user's image", requester: "basic", imageID: "img-ent", exp: 300, wantErr: domain.ErrPermissionDenied},
		{name: "plan without links", requester: "basic", imageID: "img-basic", exp: 300, wantErr: domain.ErrPermissionDenied},
		{name: "owner without plan", requester: "nobody", imageID: "img-nobody", exp: 300, wantErr: domain.ErrPermissionDenied},
		{name: "image without file", requester: "ent", imageID: "img-ent-bare", exp: 300, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			issued, err := f.usecase.Issue(context.Background(), tt.requester, tt.imageID, tt.exp)
			assert.Nil(t, issued)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.links.links)
			assert.Empty(t, f.publisher.events)
		})
	}
}

func TestNewLinkUsecaseValidatesOptions(t *testing.T) {
	zlog.Init()

	for _, opts := range []Options{
		{MinSeconds: 300, MaxSeconds: 30000},
		{Secret: "s", MinSeconds: 0, MaxSeconds: 10},
		{Secret: "s", MinSeconds: 100, MaxSeconds: 99},
	} {
		_, err := NewLinkUsecase(fakeImages{}, fakePlans{}, &fakeLinks{}, fakeFiles{}, &fakePublisher{}, opts, &zlog.Logger)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	}
}

func TestIssueDoesNotWaitForStuckBroker(t *testing.T) {
	f := newFixture(t)
	f.publisher.hang = true
	f.usecase.publishTimeout = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Now()
	issued, err := f.usecase.Issue(ctx, "ent", "img-ent", 300)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.EventLinkIssued, f.publisher.events[0].Type)

	_, err = f.usecase.Resolve(ctx, tokenOf(t, issued.URL))
	require.NoError(t, err)
}
