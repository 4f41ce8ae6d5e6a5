package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"stocktrack/internal/analytics"
	"stocktrack/internal/domain"
	"stocktrack/internal/excel"
	"stocktrack/internal/ledger"
	"stocktrack/internal/registry"
)

type Handler struct {
	registry  *registry.Registry
	ledger    *ledger.Ledger
	analytics *analytics.Engine
}

func NewHandler(reg *registry.Registry, led *ledger.Ledger, eng *analytics.Engine) *Handler {
	return &Handler{registry: reg, ledger: led, analytics: eng}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.registry.ListProducts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.registry.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input registry.ProductInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.registry.CreateProduct(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) PatchProduct(w http.ResponseWriter, r *http.Request) {
	var patch registry.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.registry.PatchProduct(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCounterparties(w http.ResponseWriter, r *http.Request) {
	items, err := h.registry.ListCounterparties(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) GetCounterparty(w http.ResponseWriter, r *http.Request) {
	counterparty, err := h.registry.GetCounterparty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counterparty)
}

func (h *Handler) CreateCounterparty(w http.ResponseWriter, r *http.Request) {
	var input registry.CounterpartyInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	counterparty, err := h.registry.CreateCounterparty(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, counterparty)
}

func (h *Handler) PatchCounterparty(w http.ResponseWriter, r *http.Request) {
	var patch registry.CounterpartyPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	counterparty, err := h.registry.PatchCounterparty(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counterparty)
}

func (h *Handler) DeleteCounterparty(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeleteCounterparty(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type purchaseRequest struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	SupplierID string `json:"supplier_id"`
}

func (h *Handler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	title, err := h.ledger.RecordPurchase(r.Context(), req.ProductID, req.Quantity, req.SupplierID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, title)
}

type saleRequest struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	CustomerID string `json:"customer_id"`
}

func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	title, err := h.ledger.RecordSale(r.Context(), req.ProductID, req.Quantity, req.CustomerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, title)
}

func (h *Handler) ListTitles(w http.ResponseWriter, r *http.Request) {
	openOnly := false
	if raw := strings.TrimSpace(r.URL.Query().Get("open")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "open must be true or false")
			return
		}
		openOnly = parsed
	}
	titles, err := h.ledger.Titles(r.Context(), openOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": titles, "count": len(titles)})
}

func (h *Handler) SettleTitle(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledger.SettleTitle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if result.Outcome == ledger.OutcomeUnknown {
		writeError(w, http.StatusNotFound, "title not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":   result.Title,
		"outcome": result.Outcome,
	})
}

func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := parseOptionalDate(query.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseOptionalDate(query.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	movements, err := h.ledger.Movements(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": movements, "count": len(movements)})
}

func (h *Handler) RevenueClassification(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.RevenueClassification(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) DemandForecast(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.DemandForecast(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) ExportReports(w http.ResponseWriter, r *http.Request) {
	abc, err := h.analytics.RevenueClassification(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	forecast, err := h.analytics.DemandForecast(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	filename := fmt.Sprintf("reports-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := excel.WriteReports(w, abc, forecast); err != nil {
		// Headers are already out; nothing useful left to send.
		return
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func parseOptionalDate(raw string) (*domain.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	date, err := domain.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return &date, nil
}

func writeDomainError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &insufficient):
		writeError(w, http.StatusConflict, insufficient.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
