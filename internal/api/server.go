package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tokendrop/internal/distributor"
	"tokendrop/internal/ledger"
	"tokendrop/internal/model"
	"tokendrop/internal/store"
)

// Server exposes the orchestrator operations over HTTP for UI collaborators.
// The operator signer acts as event creator and substitutes for the
// claimant as fee payer; wallet-signed fee payment needs a transport that
// can relay the claimant's signature and stays outside this core.
type Server struct {
	dist     *distributor.Distributor
	events   store.EventStore
	operator ledger.Signer
	logger   *zap.Logger
}

func NewServer(dist *distributor.Distributor, events store.EventStore, operator ledger.Signer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{dist: dist, events: events, operator: operator, logger: logger}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api")
	apiGroup.POST("/events", s.registerEvent)
	apiGroup.POST("/events/:id/mint", s.setEventMint)
	apiGroup.POST("/events/:id/pool", s.provisionPool)
	apiGroup.POST("/events/:id/compress", s.compressSupply)
	apiGroup.POST("/events/:id/claims", s.claim)
	apiGroup.GET("/events/:id/claims", s.eventClaims)
	apiGroup.GET("/wallets/:address/claims", s.walletClaims)

	return router
}

func (s *Server) registerEvent(c *gin.Context) {
	var req RegisterEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	event := model.Event{
		ID:            uuid.NewString(),
		Title:         req.Title,
		Symbol:        req.Symbol,
		Decimals:      req.Decimals,
		AttendeeCount: req.AttendeeCount,
		Creator:       req.Creator,
		Mint:          req.Mint,
		MintTxID:      req.MintTxID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.events.InsertEvent(c.Request.Context(), event); err != nil {
		s.logger.Error("register event failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not register event"})
		return
	}

	s.logger.Info("event registered", zap.String("event_id", event.ID), zap.String("title", event.Title))
	c.JSON(http.StatusCreated, event)
}

func (s *Server) setEventMint(c *gin.Context) {
	var req SetMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	id := c.Param("id")
	if err := s.events.SetEventMint(c.Request.Context(), id, req.Mint, req.MintTxID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
			return
		}
		s.logger.Error("set event mint failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not update event"})
		return
	}

	s.logger.Info("event mint recorded", zap.String("event_id", id), zap.String("mint", req.Mint))
	c.Status(http.StatusNoContent)
}

func (s *Server) provisionPool(c *gin.Context) {
	pool, err := s.dist.ProvisionPool(c.Request.Context(), c.Param("id"), s.operator)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pool)
}

func (s *Server) compressSupply(c *gin.Context) {
	txID, err := s.dist.CompressSupply(c.Request.Context(), c.Param("id"), s.operator)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, CompressResponse{TxID: txID})
}

func (s *Server) claim(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	// The operator wallet fronts the claim fee on behalf of the claimant.
	feePayer := s.operator
	outcome, err := s.dist.Claim(c.Request.Context(), c.Param("id"), req.Wallet, feePayer)
	if err != nil {
		s.writeError(c, err)
		return
	}

	status := http.StatusOK
	if outcome.Kind == distributor.OutcomeAlreadyClaimed {
		status = http.StatusConflict
	}
	c.JSON(status, outcome)
}

func (s *Server) eventClaims(c *gin.Context) {
	claims, err := s.dist.EventClaimHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ClaimHistoryResponse{Claims: claims})
}

func (s *Server) walletClaims(c *gin.Context) {
	claims, err := s.dist.WalletClaimHistory(c.Request.Context(), c.Param("address"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ClaimHistoryResponse{Claims: claims})
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, distributor.ErrEventNotFound):
		status = http.StatusNotFound
	case errors.Is(err, distributor.ErrPoolNotProvisioned),
		errors.Is(err, distributor.ErrEventNotMinted),
		errors.Is(err, distributor.ErrNoSourceAccount),
		errors.Is(err, distributor.ErrAlreadyCompressed):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
