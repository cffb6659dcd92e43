package link

import (
	"fmt"
	"net/http"
	"strconv"
	"unicode/utf8"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/http-server/handler/link/dto"
	"img-thumbs/internal/http-server/handler/response"
	"img-thumbs/internal/http-server/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"
)

var errBadRequest = fmt.Errorf("%w: malformed request", domain.ErrValidation)

type LinkHandler struct {
	usecase  linkUsecase
	validate *validator.Validate
	logger   *zlog.Zerolog
}

func NewLinkHandler(usecase linkUsecase, logger *zlog.Zerolog) *LinkHandler {
	validate := validator.New()
	// Image ids end up in TEXT lookups, which reject invalid UTF-8.
	if err := validate.RegisterValidation("utf8", func(fl validator.FieldLevel) bool {
		return utf8.ValidString(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	return &LinkHandler{
		usecase:  usecase,
		validate: validate,
		logger:   logger,
	}
}

// IssueLink handles GET /api/links?image=<id>&exp=<seconds>.
func (h *LinkHandler) IssueLink(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	query := r.URL.Query()
	req := dto.IssueRequest{ImageID: query.Get("image")}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, h.logger, fmt.Errorf("%w: image must be a non-empty UTF-8 id", errBadRequest))
		return
	}

	exp, err := strconv.Atoi(query.Get("exp"))
	if err != nil {
		response.Error(w, h.logger, fmt.Errorf("%w: exp must be an integer number of seconds", errBadRequest))
		return
	}
	req.Exp = exp

	issued, err := h.usecase.Issue(r.Context(), requesterID, req.ImageID, req.Exp)
	if err != nil {
		h.logger.Warn().Err(err).Str("image_id", req.ImageID).Str("requester_id", requesterID).Msg("Link rejected")
		response.Error(w, h.logger, err)
		return
	}

	response.JSON(w, h.logger, http.StatusCreated, dto.IssueResponse{
		URL:       issued.URL,
		ExpiresAt: issued.ExpiresAt,
	})
}

// ResolveLink redirects a temporary link to the file it points to.
func (h *LinkHandler) ResolveLink(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	url, err := h.usecase.Resolve(r.Context(), token)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}
