package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-andiamo/modelmap"
	"github.com/go-andiamo/modelmap/internal/store"
	"github.com/go-andiamo/modelmap/orderitem"
	"github.com/go-chi/chi/v5"
)

// OrderItemStore is the persistence used by OrderItemHandler
type OrderItemStore interface {
	List(ctx context.Context, limit int) ([]orderitem.OrderItem, error)
	Get(ctx context.Context, id int64) (orderitem.OrderItem, error)
	Create(ctx context.Context, item *orderitem.OrderItem) error
	Update(ctx context.Context, item orderitem.OrderItem) error
	Delete(ctx context.Context, id int64) error
}

// OrderItemHandler handles order item HTTP requests
type OrderItemHandler struct {
	store      OrderItemStore
	serializer modelmap.Serializer[orderitem.OrderItem]
	log        *slog.Logger
}

// NewOrderItemHandler creates a new order item handler
func NewOrderItemHandler(store OrderItemStore, serializer modelmap.Serializer[orderitem.OrderItem], log *slog.Logger) *OrderItemHandler {
	return &OrderItemHandler{
		store:      store,
		serializer: serializer,
		log:        log,
	}
}

// Routes registers the order item endpoints
func (h *OrderItemHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/schema", h.Schema)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Retrieve)
		r.Put("/", h.Update)
		r.Patch("/", h.PartialUpdate)
		r.Delete("/", h.Destroy)
	})
}

// List handles GET /api/order-items/ (optional ?limit=n)
func (h *OrderItemHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			WriteDetail(w, http.StatusBadRequest, "Invalid limit.", h.log)
			return
		}
		limit = n
	}

	items, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.writeStoreError(w, err, "failed to list order items")
		return
	}
	h.writeRepresentation(w, http.StatusOK, func(buf *bytes.Buffer) error {
		return h.serializer.WriteManyJSON(buf, items)
	})
}

// Create handles POST /api/order-items/
func (h *OrderItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	item, err := h.serializer.ReadJSON(r.Context(), r.Body)
	if err != nil {
		h.writeDeserializeError(w, err)
		return
	}
	if err = h.store.Create(r.Context(), item); err != nil {
		h.writeStoreError(w, err, "failed to create order item")
		return
	}
	h.log.Info("order item created", "order_item_id", item.ID, "product_id", item.ProductID)
	h.writeRepresentation(w, http.StatusCreated, func(buf *bytes.Buffer) error {
		return h.serializer.WriteJSON(buf, item)
	})
}

// Retrieve handles GET /api/order-items/{id}/
func (h *OrderItemHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeRepresentation(w, http.StatusOK, func(buf *bytes.Buffer) error {
		return h.serializer.WriteJSON(buf, &item)
	})
}

// Update handles PUT /api/order-items/{id}/
func (h *OrderItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// PartialUpdate handles PATCH /api/order-items/{id}/
func (h *OrderItemHandler) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *OrderItemHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.serializer.ReadJSONInto(r.Context(), r.Body, &item, partial); err != nil {
		h.writeDeserializeError(w, err)
		return
	}
	if err := h.store.Update(r.Context(), item); err != nil {
		h.writeStoreError(w, err, "failed to update order item")
		return
	}
	h.log.Info("order item updated", "order_item_id", item.ID, "partial", partial)
	h.writeRepresentation(w, http.StatusOK, func(buf *bytes.Buffer) error {
		return h.serializer.WriteJSON(buf, &item)
	})
}

// Destroy handles DELETE /api/order-items/{id}/
func (h *OrderItemHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		WriteDetail(w, http.StatusNotFound, msgNotFound, h.log)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "failed to delete order item")
		return
	}
	h.log.Info("order item deleted", "order_item_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Schema handles GET /api/order-items/schema
func (h *OrderItemHandler) Schema(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.serializer.JSONSchema(), h.log)
}

func (h *OrderItemHandler) lookup(w http.ResponseWriter, r *http.Request) (orderitem.OrderItem, bool) {
	id, ok := parseID(r)
	if !ok {
		WriteDetail(w, http.StatusNotFound, msgNotFound, h.log)
		return orderitem.OrderItem{}, false
	}
	item, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to get order item")
		return orderitem.OrderItem{}, false
	}
	return item, true
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *OrderItemHandler) writeRepresentation(w http.ResponseWriter, status int, write func(buf *bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		h.log.Error("failed to encode order item representation", "error", err)
		WriteDetail(w, http.StatusInternalServerError, "A server error occurred.", h.log)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (h *OrderItemHandler) writeDeserializeError(w http.ResponseWriter, err error) {
	if ve, ok := modelmap.AsValidationErrors(err); ok {
		h.log.Debug("order item validation failed", "fields", ve.Fields())
		WriteJSON(w, http.StatusBadRequest, ve, h.log)
		return
	}
	var pe *modelmap.ParseError
	if errors.As(err, &pe) {
		WriteDetail(w, http.StatusBadRequest, pe.Detail, h.log)
		return
	}
	h.writeStoreError(w, err, "failed to deserialize order item")
}

func (h *OrderItemHandler) writeStoreError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteDetail(w, http.StatusNotFound, msgNotFound, h.log)
	case errors.Is(err, store.ErrReferenceViolation):
		WriteDetail(w, http.StatusBadRequest, "Referenced object does not exist.", h.log)
	default:
		h.log.Error(msg, "error", err)
		WriteDetail(w, http.StatusInternalServerError, "A server error occurred.", h.log)
	}
}
