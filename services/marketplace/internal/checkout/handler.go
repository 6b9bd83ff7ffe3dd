package checkout

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/dawatapp/dawat/services/marketplace/internal/identity"
	"github.com/dawatapp/dawat/services/marketplace/internal/order"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

// Handler serves /orders. Only the customer of an order ever sees its passcode.
type Handler struct {
	service *Service
	orders  *order.Manager
	config  *apt.Config
	tlm     *telemetry.HTTP
	logger  apt.Logger
}

type HandlerDeps struct {
	Service *Service
	Orders  *order.Manager
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		service: hd.Service,
		orders:  hd.Orders,
		config:  config,
		tlm:     telemetry.NewHTTP(),
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.PlaceOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/ready", h.MarkReady)
		r.Post("/{id}/verify", h.VerifyPasscode)
		r.Post("/{id}/cancel", h.CancelOrder)
		r.Post("/{id}/rating", h.RateOrder)
	})
}

type PlaceOrderRequest struct {
	PostID   uuid.UUID `json:"post_id"`
	Quantity int       `json:"quantity"`
}

type MarkReadyRequest struct {
	ETAMinutes *int `json:"eta_minutes"`
}

type VerifyRequest struct {
	Passcode string `json:"passcode"`
}

type RatingRequest struct {
	Rating int     `json:"rating"`
	Review *string `json:"review"`
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PlaceOrder")
	defer finish()

	log := h.log(r)

	user, ok := identity.Require(w, r)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	if req.PostID == uuid.Nil {
		apt.RespondError(w, http.StatusBadRequest, "post_id is required")
		return
	}

	o, err := h.service.PlaceOrder(r.Context(), PlaceOrderInput{
		Customer: Customer{ID: user.ID, Name: user.Name, Postcode: user.Postcode},
		PostID:   req.PostID,
		Quantity: req.Quantity,
	})
	if err != nil {
		h.respondError(w, log, err, "Could not place order")
		return
	}

	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, o, apt.RESTfulLinksFor(o)...)
}

// ListOrders returns "my orders" for role=customer (the default) and
// incoming orders for role=supplier.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	log := h.log(r)

	user, ok := identity.Require(w, r)
	if !ok {
		return
	}

	var orders []*order.Order
	var err error

	switch role := r.URL.Query().Get("role"); role {
	case "", order.RoleCustomer:
		orders, err = h.orders.ListByCustomer(r.Context(), user.ID)
	case order.RoleSupplier:
		orders, err = h.orders.ListBySupplier(r.Context(), user.ID)
	default:
		apt.RespondError(w, http.StatusBadRequest, "role must be customer or supplier")
		return
	}
	if err != nil {
		h.respondError(w, log, err, "Could not list orders")
		return
	}

	apt.RespondCollection(w, viewsFor(orders, user.ID), "order")
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	o, user, ok := h.loadForParty(w, r, log, id, "")
	if !ok {
		return
	}

	view := viewFor(o, user.ID)
	apt.RespondSuccess(w, view, apt.RESTfulLinksFor(view)...)
}

func (h *Handler) MarkReady(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.MarkReady")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	if _, _, ok := h.loadForParty(w, r, log, id, order.RoleSupplier); !ok {
		return
	}

	var req MarkReadyRequest
	if !h.decodeOptional(w, r, log, &req) {
		return
	}

	o, err := h.orders.MarkReady(r.Context(), id, req.ETAMinutes)
	if err != nil {
		h.respondError(w, log, err, "Could not mark order ready")
		return
	}

	view := o.Redacted()
	apt.RespondSuccess(w, view, apt.RESTfulLinksFor(view)...)
}

func (h *Handler) VerifyPasscode(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.VerifyPasscode")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	if _, _, ok := h.loadForParty(w, r, log, id, order.RoleSupplier); !ok {
		return
	}

	var req VerifyRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	o, err := h.orders.VerifyPasscode(r.Context(), id, req.Passcode)
	if err != nil {
		h.respondError(w, log, err, "Could not verify passcode")
		return
	}

	view := o.Redacted()
	apt.RespondSuccess(w, view, apt.RESTfulLinksFor(view)...)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CancelOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	if _, _, ok := h.loadForParty(w, r, log, id, order.RoleCustomer); !ok {
		return
	}

	o, err := h.orders.Cancel(r.Context(), id)
	if err != nil {
		h.respondError(w, log, err, "Could not cancel order")
		return
	}

	apt.RespondSuccess(w, o, apt.RESTfulLinksFor(o)...)
}

// RateOrder records the caller's rating. The side rated follows the caller's
// part in the order.
func (h *Handler) RateOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RateOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	existing, user, ok := h.loadForParty(w, r, log, id, "")
	if !ok {
		return
	}

	var req RatingRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	o, err := h.service.RateOrder(r.Context(), id, req.Rating, req.Review, existing.PartyOf(user.ID))
	if err != nil {
		h.respondError(w, log, err, "Could not rate order")
		return
	}

	view := viewFor(o, user.ID)
	apt.RespondSuccess(w, view, apt.RESTfulLinksFor(view)...)
}

// loadForParty loads the order and checks the caller takes part in it. When
// role is set the caller must play exactly that role.
func (h *Handler) loadForParty(w http.ResponseWriter, r *http.Request, log apt.Logger, id uuid.UUID, role string) (*order.Order, identity.User, bool) {
	user, ok := identity.Require(w, r)
	if !ok {
		return nil, identity.User{}, false
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, log, err, "Could not load order")
		return nil, identity.User{}, false
	}
	if o == nil {
		apt.RespondError(w, http.StatusNotFound, "Order not found")
		return nil, identity.User{}, false
	}

	party := o.PartyOf(user.ID)
	if party == "" || (role != "" && party != role) {
		log.Info("order access denied", "order_id", id.String(), "user_id", user.ID, "required_role", role)
		apt.RespondError(w, http.StatusForbidden, "Not allowed for this order")
		return nil, identity.User{}, false
	}

	return o, user, true
}

func viewFor(o *order.Order, userID string) *order.Order {
	if o.PartyOf(userID) == order.RoleCustomer {
		return o
	}
	return o.Redacted()
}

func viewsFor(orders []*order.Order, userID string) []*order.Order {
	views := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		views = append(views, viewFor(o, userID))
	}
	return views
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

// decodeOptional accepts an empty body and leaves target untouched.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, log apt.Logger, target any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return h.decode(w, r, log, target)
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
