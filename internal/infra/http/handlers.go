package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"palisade/internal/domain"
	"palisade/internal/infra/auth/rbac"
	"palisade/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type productRequest struct {
	Name        string `json:"name"`
	SKU         string `json:"sku"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`

	// Only honored for system-tenant callers; everyone else has it
	// replaced with their own tenant.
	TenantID string `json:"tenant_id"`
}

type productResponse struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	SKU         string `json:"sku"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type auditEntryResponse struct {
	ID               string `json:"id"`
	Timestamp        string `json:"timestamp"`
	EventType        string `json:"event_type"`
	AggregateType    string `json:"aggregate_type,omitempty"`
	AggregateID      string `json:"aggregate_id,omitempty"`
	Username         string `json:"username"`
	TenantID         string `json:"tenant_id"`
	ServiceName      string `json:"service_name"`
	Action           string `json:"action"`
	Payload          string `json:"payload,omitempty"`
	Result           string `json:"result"`
	ErrorMessage     string `json:"error_message,omitempty"`
	ClientIP         string `json:"client_ip,omitempty"`
	CorrelationID    string `json:"correlation_id,omitempty"`
	PayloadTruncated bool   `json:"payload_truncated"`
}

type auditPageResponse struct {
	Entries []auditEntryResponse `json:"entries"`
	Total   int64                `json:"total"`
	Page    int                  `json:"page"`
	Size    int                  `json:"size"`
}

func (s *Server) handleHealthz(c *gin.Context) {
	mode := "no-db"
	if s.store != nil && s.store.DB != nil {
		mode = "db"
	}
	if s.health != nil {
		if err := s.health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"mode":   mode,
				"detail": "audit store unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
}

func (s *Server) handleCreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	product, err := s.products.Create(c.Request.Context(), usecase.CreateProductCommand{
		Name:        req.Name,
		SKU:         req.SKU,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		TenantID:    req.TenantID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResponse(product))
}

func (s *Server) handleGetProduct(c *gin.Context) {
	product, err := s.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

func (s *Server) handleListProducts(c *gin.Context) {
	products, err := s.products.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

func (s *Server) handleUpdateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	product, err := s.products.Update(c.Request.Context(), usecase.UpdateProductCommand{
		ID:          c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
	if err := s.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListAuditEntries(c *gin.Context) {
	principal := domain.PrincipalFrom(c.Request.Context())
	if !principal.Authenticated {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	filter := domain.AuditFilter{
		AggregateType: strings.TrimSpace(c.Query("aggregate_type")),
		AggregateID:   strings.TrimSpace(c.Query("aggregate_id")),
		Username:      strings.TrimSpace(c.Query("username")),
	}
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_TIMESTAMP", "from must be RFC3339")
			return
		}
		filter.From = ts
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_TIMESTAMP", "to must be RFC3339")
			return
		}
		filter.To = ts
	}

	// Unparseable paging values clamp to defaults like out-of-range ones.
	page := domain.Page{
		Number: atoiDefault(c.Query("page"), 0),
		Size:   atoiDefault(c.Query("size"), 0),
		Sort:   strings.TrimSpace(c.Query("sort")),
	}

	result, err := s.auditQuery.List(c.Request.Context(), filter, page)
	if err != nil {
		writeError(c, err)
		return
	}
	entries := make([]auditEntryResponse, 0, len(result.Entries))
	for _, e := range result.Entries {
		entries = append(entries, toAuditEntryResponse(e))
	}
	c.JSON(http.StatusOK, auditPageResponse{
		Entries: entries,
		Total:   result.Total,
		Page:    result.Number,
		Size:    result.Size,
	})
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		TenantID:    p.TenantID,
		Name:        p.Name,
		SKU:         p.SKU,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toAuditEntryResponse(e domain.AuditEntry) auditEntryResponse {
	return auditEntryResponse{
		ID:               e.ID,
		Timestamp:        e.Timestamp.UTC().Format(time.RFC3339Nano),
		EventType:        string(e.EventType),
		AggregateType:    e.AggregateType,
		AggregateID:      e.AggregateID,
		Username:         e.Username,
		TenantID:         e.TenantID,
		ServiceName:      e.ServiceName,
		Action:           e.Action,
		Payload:          e.Payload,
		Result:           string(e.Result),
		ErrorMessage:     e.ErrorMessage,
		ClientIP:         e.ClientIP,
		CorrelationID:    e.CorrelationID,
		PayloadTruncated: e.PayloadTruncated,
	}
}

func writeError(c *gin.Context, err error) {
	if authz, ok := rbac.IsAuthzError(err); ok {
		writeErrorCode(c, http.StatusForbidden, authz.Code, "forbidden")
		return
	}
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "forbidden")
	case errors.Is(err, domain.ErrNoTenant):
		writeErrorCode(c, http.StatusForbidden, "TENANT_REQUIRED", "no tenant in scope")
	case errors.Is(err, domain.ErrNotFound):
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, domain.ErrInvalidCommand):
		writeErrorCode(c, http.StatusBadRequest, "INVALID_COMMAND", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeErrorCode(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "store unavailable")
	default:
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}

func atoiDefault(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return parsed
}
