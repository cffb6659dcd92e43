package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/http-server/handler/image"
	imagedto "img-thumbs/internal/http-server/handler/image/dto"
	"img-thumbs/internal/http-server/handler/link"
	linkdto "img-thumbs/internal/http-server/handler/link/dto"
	"img-thumbs/internal/http-server/middleware"
	imageuc "img-thumbs/internal/usecase/image"
	linkuc "img-thumbs/internal/usecase/link"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

const cdn = "http://cdn.test/thumbs"

type fakeAuth struct{}

func (fakeAuth) Authenticate(_ context.Context, username, password string) (*domain.User, error) {
	if password != "pw" {
		return nil, domain.ErrUnauthenticated
	}
	return &domain.User{ID: "id-" + username, Username: username}, nil
}

type fakeImages struct {
	gotOwner string
	gotData  []byte
	gotLimit int
	err      error
}

func (f *fakeImages) CreateRootImage(_ context.Context, ownerID string, data []byte, _ string) (*domain.ImageTree, error) {
	f.gotOwner, f.gotData = ownerID, data
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ImageTree{
		Root: domain.Image{ID: "root", OwnerID: ownerID},
		Children: []domain.Image{
			{ID: "c200", ParentID: "root", RuleHeight: 200, FilePath: "photos/x/a.png"},
		},
	}, nil
}

func (f *fakeImages) ListRootImages(_ context.Context, ownerID string, limit, _ int) ([]domain.ImageTree, error) {
	f.gotOwner, f.gotLimit = ownerID, limit
	return []domain.ImageTree{
		{Root: domain.Image{ID: "r1", FilePath: "photos/x/r1.png"}},
		{Root: domain.Image{ID: "r2"}},
	}, nil
}

func (f *fakeImages) URLs(tree *domain.ImageTree) map[string]domain.ImageURL {
	return imageuc.AssembleURLs(tree, func(path string) string { return cdn + "/" + path })
}

type fakeLinks struct {
	gotExp int
}

func (f *fakeLinks) Issue(_ context.Context, requesterID, imageID string, exp int) (*linkuc.IssuedLink, error) {
	f.gotExp = exp
	switch {
	case imageID == "missing":
		return nil, linkuc.ErrImageNotFound
	case requesterID != "id-alice":
		return nil, linkuc.ErrNotOwner
	case exp < 300:
		return nil, linkuc.ErrExpirationOutOfRange
	}
	return &linkuc.IssuedLink{
		URL:       "https://thumbs.test/tmp/tok",
		ExpiresAt: time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC),
	}, nil
}

func (f *fakeLinks) Resolve(_ context.Context, token string) (string, error) {
	switch token {
	case "good":
		return cdn + "/photos/x/a.png", nil
	case "expired":
		return "", linkuc.ErrLinkExpired
	default:
		return "", linkuc.ErrInvalidToken
	}
}

type testServer struct {
	handler http.Handler
	images  *fakeImages
	links   *fakeLinks
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	zlog.Init()
	logger := &zlog.Logger

	s := &testServer{images: &fakeImages{}, links: &fakeLinks{}}
	s.handler = SetupRouter(&Handler{
		ImageHandler: image.NewImageHandler(s.images, logger),
		LinkHandler:  link.NewLinkHandler(s.links, logger),
		Auth:         middleware.BasicAuth(fakeAuth{}, logger),
	}, logger)
	return s
}

func (s *testServer) do(req *http.Request, user string) *httptest.ResponseRecorder {
	if user != "" {
		req.SetBasicAuth(user, "pw")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile(field, "cat.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/health", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/api/images", "/api/links?image=x&exp=300"} {
		rec := s.do(httptest.NewRequest(http.MethodGet, target, nil), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestUploadImage(t *testing.T) {
	s := newTestServer(t)

	body, contentType := multipartBody(t, "file", []byte("png bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/images", body)
	req.Header.Set("Content-Type", contentType)

	rec := s.do(req, "alice")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "id-alice", s.images.gotOwner)
	assert.Equal(t, []byte("png bytes"), s.images.gotData)

	var resp imagedto.ImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "root", resp.ID)
	assert.Equal(t, map[string]domain.ImageURL{
		"200": {ID: "c200", URL: cdn + "/photos/x/a.png"},
	}, resp.URLs)
}

func TestUploadImageErrors(t *testing.T) {
	tests := []struct {
		name  string
		field string
		ucErr error
		want  int
	}{
		{name: "missing file field", field: "other", want: http.StatusBadRequest},
		{name: "undecodable", field: "file", ucErr: domain.ErrDecode, want: http.StatusBadRequest},
		{name: "no plan", field: "file", ucErr: imageuc.ErrNoPlan, want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.images.err = tt.ucErr

			body, contentType := multipartBody(t, tt.field, []byte("data"))
			req := httptest.NewRequest(http.MethodPost, "/api/images", body)
			req.Header.Set("Content-Type", contentType)

			rec := s.do(req, "alice")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestUploadImageNotMultipart(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/images", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")

	rec := s.do(req, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListImages(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/images?limit=10&offset=0", nil), "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 10, s.images.gotLimit)

	var resp []imagedto.ImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Contains(t, resp[0].URLs, "original")
	assert.NotNil(t, resp[1].URLs)
	assert.Empty(t, resp[1].URLs)

	for _, q := range []string{"limit=abc", "limit=500", "offset=-1"} {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/images?"+q, nil), "alice")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestIssueLink(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/links?image=img&exp=600", nil), "alice")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 600, s.links.gotExp)

	var resp linkdto.IssueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://thumbs.test/tmp/tok", resp.URL)
	assert.True(t, resp.ExpiresAt.Equal(time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)))
}

func TestIssueLinkErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		user  string
		want  int
	}{
		{name: "non-integer exp", query: "image=img&exp=10m", user: "alice", want: http.StatusBadRequest},
		{name: "missing exp", query: "image=img", user: "alice", want: http.StatusBadRequest},
		{name: "missing image", query: "exp=600", user: "alice", want: http.StatusBadRequest},
		{name: "image not utf-8", query: "image=%ff&exp=600", user: "alice", want: http.StatusBadRequest},
		{name: "exp out of range", query: "image=img&exp=10", user: "alice", want: http.StatusBadRequest},
		{name: "unknown image", query: "image=missing&exp=600", user: "alice", want: http.StatusNotFound},
		{name: "other owner", query: "image=img&exp=600", user: "bob", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(httptest.NewRequest(http.MethodGet, "/api/links?"+tt.query, nil), tt.user)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestResolveLink(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/tmp/good", nil), "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, cdn+"/photos/x/a.png", rec.Header().Get("Location"))

	rec = s.do(httptest.NewRequest(http.MethodGet, "/tmp/expired", nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/tmp/forged", nil), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/nope", nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "route not found")
}
