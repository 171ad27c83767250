// Package api exposes the corrections ledger over HTTP: a write endpoint for
// recording corrections and read-only endpoints for inspection, chain
// verification, and the exported feed.
package api

import (
	"errors"
	"net/http"

	"github.com/errata-project/errata/internal/feed"
	"github.com/errata-project/errata/internal/ledger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LedgerHandler wires the recorder, store, and feed builder into Gin routes.
type LedgerHandler struct {
	recorder *ledger.Recorder
	store    ledger.Store
	builder  *feed.Builder
	logger   *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(recorder *ledger.Recorder, store ledger.Store, builder *feed.Builder, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{recorder: recorder, store: store, builder: builder, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/corrections", h.RecordCorrection)
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/entries", h.Entries)
		l.GET("/verify", h.Verify)
	}
	rg.GET("/feed", h.Feed)
}

// correctionRequest is the POST /corrections payload. All fields are
// required; validation beyond presence happens in the recorder.
type correctionRequest struct {
	NodeID     string `json:"node_id"`
	BeforeHash string `json:"before_hash"`
	AfterHash  string `json:"after_hash"`
	Reason     string `json:"reason"`
	Reporter   string `json:"reporter"`
}

// RecordCorrection handles POST /corrections — appends a correction and
// returns the committed entry.
func (h *LedgerHandler) RecordCorrection(c *gin.Context) {
	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	entry, err := h.recorder.Record(c.Request.Context(),
		req.NodeID, req.BeforeHash, req.AfterHash, req.Reason, req.Reporter)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, entry)
	case errors.Is(err, ledger.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrDuplicateHash):
		c.JSON(http.StatusConflict, gin.H{"error": "correction already recorded against this chain head"})
	case errors.Is(err, ledger.ErrStaleHead):
		c.JSON(http.StatusConflict, gin.H{"error": "chain head moved, re-read and resubmit"})
	default:
		h.logger.Error("record correction", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ledger storage unavailable"})
	}
}

// Overview handles GET /ledger — returns the chain length and current head.
func (h *LedgerHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.store.Len(ctx)
	if err != nil {
		h.logger.Error("ledger Len", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}

	head, err := h.store.Head(ctx)
	if err != nil {
		h.logger.Error("ledger Head", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query chain head"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": count,
		"head":    head,
	})
}

// Entries handles GET /ledger/entries — returns every entry in insertion order.
func (h *LedgerHandler) Entries(c *gin.Context) {
	entries, err := h.store.AllOrdered(c.Request.Context())
	if err != nil {
		h.logger.Error("ledger AllOrdered", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read ledger"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Verify handles GET /ledger/verify — walks the stored chain and reports
// integrity, including the position of the first broken link.
func (h *LedgerHandler) Verify(c *gin.Context) {
	entries, err := h.store.AllOrdered(c.Request.Context())
	if err != nil {
		h.logger.Error("ledger AllOrdered", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read ledger"})
		return
	}

	if err := ledger.CheckChain(entries); err != nil {
		h.logger.Warn("ledger integrity check failed", zap.Error(err))
		RecordVerify(false)
		var integrity *ledger.ChainIntegrityError
		resp := gin.H{"valid": false, "error": err.Error()}
		if errors.As(err, &integrity) {
			resp["position"] = integrity.Position
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	RecordVerify(true)
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// Feed handles GET /feed — serves the exported feed document.
func (h *LedgerHandler) Feed(c *gin.Context) {
	doc, err := h.builder.Build(c.Request.Context())
	if err != nil {
		h.logger.Error("build feed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build feed"})
		return
	}
	RecordFeedBuild()
	c.JSON(http.StatusOK, doc)
}
