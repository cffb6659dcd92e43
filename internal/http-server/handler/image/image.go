package image

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/http-server/handler/image/dto"
	"img-thumbs/internal/http-server/handler/response"
	"img-thumbs/internal/http-server/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"
)

const (
	maxMemory = 8 << 20
	fileField = "file"
)

var errBadRequest = fmt.Errorf("%w: malformed request", domain.ErrValidation)

type ImageHandler struct {
	usecase  imageUsecase
	validate *validator.Validate
	logger   *zlog.Zerolog
}

func NewImageHandler(usecase imageUsecase, logger *zlog.Zerolog) *ImageHandler {
	return &ImageHandler{
		usecase:  usecase,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *ImageHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, domain.DefaultMaxUploadSize)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			response.Error(w, h.logger, err)
			return
		}
		h.logger.Warn().Err(err).Msg("Failed to parse multipart form")
		response.Error(w, h.logger, fmt.Errorf("%w: expected multipart form", errBadRequest))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(fileField)
	if err != nil {
		response.Error(w, h.logger, fmt.Errorf("%w: field %q is required", errBadRequest, fileField))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to read file")
		response.Error(w, h.logger, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	tree, err := h.usecase.CreateRootImage(r.Context(), ownerID, data, header.Filename)
	if err != nil {
		h.logger.Warn().Err(err).Str("owner_id", ownerID).Str("filename", header.Filename).Msg("Upload rejected")
		response.Error(w, h.logger, err)
		return
	}

	h.logger.Info().
		Str("image_id", tree.Root.ID).
		Str("owner_id", ownerID).
		Int("size", len(data)).
		Msg("Image uploaded")

	response.JSON(w, h.logger, http.StatusCreated, h.toResponse(tree))
}

func (h *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	req, err := h.parseListRequest(r)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}

	trees, err := h.usecase.ListRootImages(r.Context(), ownerID, req.Limit, req.Offset)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}

	out := make([]dto.ImageResponse, len(trees))
	for i := range trees {
		out[i] = h.toResponse(&trees[i])
	}

	response.JSON(w, h.logger, http.StatusOK, out)
}

func (h *ImageHandler) parseListRequest(r *http.Request) (dto.ListRequest, error) {
	var req dto.ListRequest
	query := r.URL.Query()

	for name, dst := range map[string]*int{"limit": &req.Limit, "offset": &req.Offset} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
		}
		*dst = v
	}

	if err := h.validate.Struct(req); err != nil {
		return req, fmt.Errorf("%w: %w", errBadRequest, err)
	}

	return req, nil
}

func (h *ImageHandler) toResponse(tree *domain.ImageTree) dto.ImageResponse {
	return dto.ImageResponse{
		ID:   tree.Root.ID,
		URLs: h.usecase.URLs(tree),
	}
}
