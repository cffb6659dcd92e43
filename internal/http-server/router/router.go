package router

import (
	"net/http"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/http-server/handler/image"
	"img-thumbs/internal/http-server/handler/link"
	"img-thumbs/internal/http-server/handler/response"
	"img-thumbs/internal/http-server/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/wb-go/wbf/zlog"
)

type Handler struct {
	ImageHandler *image.ImageHandler
	LinkHandler  *link.LinkHandler
	// Auth guards every /api route except health.
	Auth func(http.Handler) http.Handler
}

func SetupRouter(h *Handler, logger *zlog.Zerolog) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Message(w, logger, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Message(w, logger, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			response.JSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Group(func(r chi.Router) {
			r.Use(h.Auth)

			r.Route("/images", func(r chi.Router) {
				r.Post("/", h.ImageHandler.UploadImage)
				r.Get("/", h.ImageHandler.ListImages)
			})

			r.Get("/links", h.LinkHandler.IssueLink)
		})
	})

	r.Get(domain.TempLinkPathPrefix+"{token}", h.LinkHandler.ResolveLink)

	return r
}
