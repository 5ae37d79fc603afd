package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	cache "github.com/patrickmn/go-cache"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/auth"
	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/processor"
)

// OrderHandler serves the order-management and book-snapshot routes.
type OrderHandler struct {
	proc       *processor.Processor
	middleware *auth.Middleware
	logger     *zap.Logger
	snapshots  *cache.Cache
}

// HandlerParams contains the fx-injected dependencies for NewOrderHandler.
type HandlerParams struct {
	fx.In

	Processor  *processor.Processor
	Middleware *auth.Middleware
	Logger     *zap.Logger
}

// NewOrderHandler builds an OrderHandler with a short-lived book
// snapshot cache (half a second default expiry, one-second cleanup
// sweep) so a burst of book-depth polls doesn't each walk the tree.
func NewOrderHandler(p HandlerParams) *OrderHandler {
	return &OrderHandler{
		proc:       p.Processor,
		middleware: p.Middleware,
		logger:     p.Logger,
		snapshots:  cache.New(500*time.Millisecond, time.Second),
	}
}

// RegisterRoutes mounts the order routes under the given group, guarded
// by JWT auth and rate limiting.
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Use(h.middleware.RateLimit())
	rg.Use(h.middleware.JWTAuth())

	rg.POST("/orders", h.placeOrder)
	rg.DELETE("/orders/:index", h.cancelOrder)
	rg.POST("/orders/batch", h.batchUpdate)
	rg.GET("/book/depth", h.bookDepth)
	rg.POST("/seats/:index/deposit", h.deposit)
	rg.POST("/seats/:index/withdraw", h.withdraw)
}

type placeOrderBody struct {
	NumBaseAtoms  uint64 `json:"num_base_atoms" binding:"required"`
	PriceMantissa uint32 `json:"price_mantissa" binding:"required"`
	PriceExponent int8   `json:"price_exponent"`
	IsBid         bool   `json:"is_bid"`
	LastValidSlot uint32 `json:"last_valid_slot"`
	OrderType     uint8  `json:"order_type"`
	CurrentSlot   uint32 `json:"current_slot"`
}

func (h *OrderHandler) placeOrder(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing trader claims"})
		return
	}

	var body placeOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, correlationID, err := h.proc.PlaceOrder(c.Request.Context(), processor.PlaceOrderRequest{
		ProtocolVersion: processor.MinProtocolVersion,
		TraderSeatIndex: claims.TraderSeatIndex,
		NumBaseAtoms:    body.NumBaseAtoms,
		PriceMantissa:   body.PriceMantissa,
		PriceExponent:   body.PriceExponent,
		IsBid:           body.IsBid,
		LastValidSlot:   body.LastValidSlot,
		OrderType:       body.OrderType,
		CurrentSlot:     body.CurrentSlot,
	})
	if err != nil {
		respondError(c, correlationID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"correlation_id":  correlationID,
		"sequence_number": result.SequenceNumber,
		"base_traded":     result.BaseTraded,
		"quote_traded":    result.QuoteTraded,
		"resting":         result.RestingIndex != block.Nil,
	})
}

func (h *OrderHandler) cancelOrder(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing trader claims"})
		return
	}

	orderIndex, err := strconv.ParseUint(c.Param("index"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order index"})
		return
	}

	correlationID, err := h.proc.Cancel(c.Request.Context(), processor.CancelRequest{
		ProtocolVersion: processor.MinProtocolVersion,
		TraderSeatIndex: claims.TraderSeatIndex,
		OrderIndexHint:  uint32(orderIndex),
	})
	if err != nil {
		respondError(c, correlationID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"correlation_id": correlationID})
}

type balanceBody struct {
	Amount uint64 `json:"amount" binding:"required"`
	IsBase bool   `json:"is_base"`
}

func (h *OrderHandler) deposit(c *gin.Context) {
	seatIndex, err := strconv.ParseUint(c.Param("index"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seat index"})
		return
	}
	var body balanceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	correlationID, err := h.proc.Deposit(c.Request.Context(), processor.DepositRequest{
		ProtocolVersion: processor.MinProtocolVersion,
		TraderSeatIndex: uint32(seatIndex),
		Amount:          body.Amount,
		IsBase:          body.IsBase,
	})
	if err != nil {
		respondError(c, correlationID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"correlation_id": correlationID})
}

func (h *OrderHandler) withdraw(c *gin.Context) {
	seatIndex, err := strconv.ParseUint(c.Param("index"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seat index"})
		return
	}
	var body balanceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	correlationID, err := h.proc.Withdraw(c.Request.Context(), processor.WithdrawRequest{
		ProtocolVersion: processor.MinProtocolVersion,
		TraderSeatIndex: uint32(seatIndex),
		Amount:          body.Amount,
		IsBase:          body.IsBase,
	})
	if err != nil {
		respondError(c, correlationID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"correlation_id": correlationID})
}

type batchUpdateBody struct {
	CurrentSlot uint32                    `json:"current_slot"`
	Cancels     []uint32                  `json:"cancels"`
	Places      []processor.PlaceOrderLeg `json:"places"`
}

func (h *OrderHandler) batchUpdate(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing trader claims"})
		return
	}
	var body batchUpdateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcomes, correlationID, err := h.proc.BatchUpdate(c.Request.Context(), processor.BatchUpdateRequest{
		ProtocolVersion: processor.MinProtocolVersion,
		TraderSeatIndex: claims.TraderSeatIndex,
		CurrentSlot:     body.CurrentSlot,
		Cancels:         body.Cancels,
		Places:          body.Places,
	})
	if err != nil {
		respondError(c, correlationID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"correlation_id": correlationID, "outcomes": outcomes})
}

// bookDepth reports resting-order counts on each side, cached briefly
// so a burst of polls doesn't each walk the tree.
func (h *OrderHandler) bookDepth(c *gin.Context) {
	if cached, ok := h.snapshots.Get("depth"); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	bids, asks := h.proc.BookDepth()
	snapshot := gin.H{"bids": bids, "asks": asks}
	h.snapshots.Set("depth", snapshot, cache.DefaultExpiration)
	c.JSON(http.StatusOK, snapshot)
}

func respondError(c *gin.Context, correlationID string, err error) {
	status := http.StatusBadRequest
	body := gin.H{"correlation_id": correlationID, "error": err.Error()}
	if ce, ok := err.(*clobserr.Error); ok {
		body["code"] = ce.Code
		if ce.Code == clobserr.ErrInsufficientFunds || ce.Code == clobserr.ErrWrongIndexHint {
			status = http.StatusForbidden
		}
	}
	c.JSON(status, body)
}

