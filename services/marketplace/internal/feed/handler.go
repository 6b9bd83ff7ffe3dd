package feed

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/dawatapp/dawat/services/marketplace/internal/identity"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	catalog *Catalog
	config  *apt.Config
	tlm     *telemetry.HTTP
	logger  apt.Logger
}

func NewHandler(catalog *Catalog, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		catalog: catalog,
		config:  config,
		tlm:     telemetry.NewHTTP(),
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/posts", func(r chi.Router) {
		r.Post("/", h.CreatePost)
		r.Get("/", h.ListPosts)
		r.Get("/{id}", h.GetPost)
		r.Put("/{id}", h.UpdatePost)
		r.Delete("/{id}", h.DeletePost)
		r.Post("/{id}/repost", h.RepostPost)
		r.Post("/{id}/favorite", h.ToggleFavorite)
	})
}

type StockRequest struct {
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreatePost")
	defer finish()

	log := h.log(r)

	user, ok := identity.Require(w, r)
	if !ok {
		return
	}

	var in PostInput
	if !h.decode(w, r, log, &in) {
		return
	}

	in.SupplierID = user.ID
	if in.Chef == "" {
		in.Chef = user.Name
	}

	post, err := h.catalog.Create(r.Context(), in)
	if err != nil {
		h.respondError(w, log, err, "Could not create post")
		return
	}

	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, post, apt.RESTfulLinksFor(post)...)
}

// ListPosts serves the browse feed. Without supplier_id only fresh posts are
// listed; a supplier listing its own posts sees all of them.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListPosts")
	defer finish()

	log := h.log(r)
	q := r.URL.Query()

	favorites, _ := strconv.ParseBool(q.Get("favorites"))
	opts := ListOptions{
		SupplierID:    q.Get("supplier_id"),
		Category:      q.Get("category"),
		FavoritesOnly: favorites,
	}
	opts.Fresh = opts.SupplierID == ""

	posts, err := h.catalog.List(r.Context(), opts)
	if err != nil {
		h.respondError(w, log, err, "Could not list posts")
		return
	}

	apt.RespondCollection(w, posts, "post")
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetPost")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	post, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, log, err, "Could not load post")
		return
	}
	if post == nil {
		apt.RespondError(w, http.StatusNotFound, "Post not found")
		return
	}

	apt.RespondSuccess(w, post, apt.RESTfulLinksFor(post)...)
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdatePost")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	if _, ok := h.requireOwner(w, r, log, id); !ok {
		return
	}

	var req StockRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	post, err := h.catalog.Edit(r.Context(), id, req.Quantity, req.Price)
	if err != nil {
		h.respondError(w, log, err, "Could not update post")
		return
	}
	if post == nil {
		apt.RespondError(w, http.StatusNotFound, "Post not found")
		return
	}

	apt.RespondSuccess(w, post, apt.RESTfulLinksFor(post)...)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeletePost")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	user, ok := identity.Require(w, r)
	if !ok {
		return
	}

	post, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, log, err, "Could not delete post")
		return
	}
	if post != nil && post.SupplierID != user.ID {
		apt.RespondError(w, http.StatusForbidden, "Only the supplier can delete this post")
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		h.respondError(w, log, err, "Could not delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RepostPost(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RepostPost")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	if _, ok := h.requireOwner(w, r, log, id); !ok {
		return
	}

	var req StockRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	post, err := h.catalog.Repost(r.Context(), id, req.Quantity, req.Price)
	if err != nil {
		h.respondError(w, log, err, "Could not repost post")
		return
	}

	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, post, apt.RESTfulLinksFor(post)...)
}

func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ToggleFavorite")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	if _, ok := identity.Require(w, r); !ok {
		return
	}

	post, err := h.catalog.ToggleFavorite(r.Context(), id)
	if err != nil {
		h.respondError(w, log, err, "Could not update favorite")
		return
	}

	apt.RespondSuccess(w, post, apt.RESTfulLinksFor(post)...)
}

// requireOwner loads the post and checks the caller supplied it.
func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request, log apt.Logger, id uuid.UUID) (*Post, bool) {
	user, ok := identity.Require(w, r)
	if !ok {
		return nil, false
	}

	post, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, log, err, "Could not load post")
		return nil, false
	}
	if post == nil {
		apt.RespondError(w, http.StatusNotFound, "Post not found")
		return nil, false
	}
	if post.SupplierID != user.ID {
		apt.RespondError(w, http.StatusForbidden, "Only the supplier can change this post")
		return nil, false
	}

	return post, true
}

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		log.Debug("missing id parameter")
		apt.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log apt.Logger, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, target); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}

	return true
}

func (h *Handler) respondError(w http.ResponseWriter, log apt.Logger, err error, fallback string) {
	status := errs.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error(fallback, "error", err)
	} else if !errors.Is(err, errs.ErrNotFound) {
		log.Debug("request rejected", "error", err)
	}
	apt.RespondError(w, status, errs.Message(err, fallback))
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
