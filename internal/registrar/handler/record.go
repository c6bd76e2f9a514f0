package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jakaria-jihad/certchain/internal/certseal"
	"github.com/jakaria-jihad/certchain/internal/docstore"
	"github.com/jakaria-jihad/certchain/internal/identity"
	"github.com/jakaria-jihad/certchain/internal/registrar/model"
	"github.com/jakaria-jihad/certchain/internal/registrar/service"
	"go.uber.org/zap"
)

// RecordHandler handles HTTP requests for the certificate registrar.
type RecordHandler struct {
	svc    *service.RecordService
	tokens *identity.SessionIssuer
	logger *zap.Logger
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(svc *service.RecordService, tokens *identity.SessionIssuer, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the record routes on the given router group. The public
// verification endpoint is the only record route without session auth.
func (h *RecordHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/verify", h.Verify)

	records := rg.Group("/records", identity.RequireSession(h.tokens))
	{
		records.POST("", h.CreateRecord)
		records.GET("", h.ListRecords)
		records.GET("/:id", h.GetRecord)
		records.GET("/:id/log", h.GetAuditLog)
		records.PATCH("/:id", h.EditRecord)
		records.POST("/:id/finalize", h.FinalizeRecord)
	}
}

// abortWith maps a lifecycle engine error onto an HTTP response that names
// the violated invariant.
func (h *RecordHandler) abortWith(c *gin.Context, err error) {
	var storeErr *docstore.StoreError
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &storeErr):
		h.logger.Error("store failure", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record store unavailable"})
	default:
		h.logger.Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// CreateRecord handles POST /records — registers a new draft.
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	claims := identity.ClaimsFromCtx(c)

	var req model.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	rec, err := h.svc.CreateDraft(c.Request.Context(), claims.AdminID, claims.Role, &req)
	if err != nil {
		h.abortWith(c, err)
		return
	}
	RecordMutation("create")
	c.JSON(http.StatusCreated, rec)
}

// ListRecords handles GET /records — the dashboard view of drafts + finals,
// available to every authenticated admin role.
func (h *RecordHandler) ListRecords(c *gin.Context) {
	recs, err := h.svc.ListRecords(c.Request.Context())
	if err != nil {
		h.abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "count": len(recs)})
}

// GetRecord handles GET /records/:id — the full record including audit
// history, in any lifecycle state. Restricted to roles with the viewFull
// capability.
func (h *RecordHandler) GetRecord(c *gin.Context) {
	claims := identity.ClaimsFromCtx(c)
	if !claims.Role.Can().ViewFull {
		c.JSON(http.StatusForbidden, gin.H{"error": "full record view requires the chief role"})
		return
	}

	rec, err := h.svc.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetAuditLog handles GET /records/:id/log — the ordered admin chain.
// Restricted to roles with the viewFull capability.
func (h *RecordHandler) GetAuditLog(c *gin.Context) {
	claims := identity.ClaimsFromCtx(c)
	if !claims.Role.Can().ViewFull {
		c.JSON(http.StatusForbidden, gin.H{"error": "audit log view requires the chief role"})
		return
	}

	chain, err := h.svc.GetAuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": c.Param("id"), "admin_chain": chain})
}

// EditRecord handles PATCH /records/:id — applies field changes to a draft.
func (h *RecordHandler) EditRecord(c *gin.Context) {
	claims := identity.ClaimsFromCtx(c)

	var req model.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Covers malformed bodies and type mismatches such as a non-numeric
		// cgpa, which is rejected here rather than silently dropped.
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	rec, err := h.svc.EditDraft(c.Request.Context(), claims.AdminID, claims.Role, c.Param("id"), &req)
	if err != nil {
		h.abortWith(c, err)
		return
	}
	RecordMutation("edit")
	c.JSON(http.StatusOK, rec)
}

// FinalizeRecord handles POST /records/:id/finalize — the one-way draft →
// finalized transition.
func (h *RecordHandler) FinalizeRecord(c *gin.Context) {
	claims := identity.ClaimsFromCtx(c)

	rec, err := h.svc.Finalize(c.Request.Context(), claims.AdminID, claims.Role, c.Param("id"))
	if err != nil {
		h.abortWith(c, err)
		return
	}
	RecordMutation("finalize")
	c.JSON(http.StatusOK, rec)
}

// verifiedRecord is the public projection of a finalized record returned by
// the verification endpoint. The audit chain stays internal.
type verifiedRecord struct {
	StudentID          string     `json:"student_id"`
	Name               string     `json:"name"`
	Major              string     `json:"major"`
	CGPA               *float64   `json:"cgpa,omitempty"`
	CertificateSerial  string     `json:"certificate_serial"`
	SecurityHex        string     `json:"security_hex"`
	BlockHash          string     `json:"block_hash"`
	TimestampFinalized *time.Time `json:"timestamp_finalized"`
}

// Verify handles GET /verify?code=… — the public certificate lookup.
// Only finalized records are searched; the response reports whether the
// stored block hash still matches the record content.
func (h *RecordHandler) Verify(c *gin.Context) {
	code := c.Query("code")

	rec, err := h.svc.VerifyByCode(c.Request.Context(), code)
	if err != nil {
		RecordVerification(false)
		h.abortWith(c, err)
		return
	}

	hashValid, err := certseal.Verify(rec)
	if err != nil {
		h.abortWith(c, err)
		return
	}
	RecordVerification(true)

	c.JSON(http.StatusOK, gin.H{
		"record": verifiedRecord{
			StudentID:          rec.StudentID,
			Name:               rec.Name,
			Major:              rec.Major,
			CGPA:               rec.CGPA,
			CertificateSerial:  rec.CertificateSerial,
			SecurityHex:        rec.SecurityHex,
			BlockHash:          rec.BlockHash,
			TimestampFinalized: rec.TimestampFinalized,
		},
		"hash_valid": hashValid,
	})
}
