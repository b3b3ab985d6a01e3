package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"CryptoBacktest/internal/handlers"
	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/services/indicators"
	"CryptoBacktest/internal/services/strategy"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	backtests *handlers.BacktestHandler
	prices    *handlers.PriceHandler
	catalog   []indicators.Entry
}

func NewHandler(backtests *handlers.BacktestHandler, prices *handlers.PriceHandler) *Handler {
	return &Handler{
		backtests: backtests,
		prices:    prices,
		catalog:   indicators.Precalculate(nil).Available(),
	}
}

type computeRequest struct {
	Candles []models.Candle `json:"candles"`
	Name    string          `json:"name"`
	Key     string          `json:"key"`
}

type importRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Days      int    `json:"days"`
}

func (h *Handler) GetStrategies(c *gin.Context) {
	defs := h.backtests.Strategies()
	c.JSON(http.StatusOK, gin.H{
		"code":  0,
		"count": len(defs),
		"data":  defs,
	})
}

func (h *Handler) GetIndicators(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":  0,
		"count": len(h.catalog),
		"data":  h.catalog,
	})
}

// GetSymbols lists the symbols that have candle files on disk
func (h *Handler) GetSymbols(c *gin.Context) {
	symbols, err := h.backtests.Symbols()
	if err != nil {
		writeError(c, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"code":  0,
		"count": len(symbols),
		"data":  symbols,
	})
}

// ComputeIndicator runs the precomputation pass over the posted candles
// and returns one line. Warm-up bars come back as null.
func (h *Handler) ComputeIndicator(c *gin.Context) {
	var req computeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	line, ok := indicators.Precalculate(req.Candles).Lookup(req.Name, req.Key)
	if !ok {
		writeError(c, fmt.Errorf("%w: unknown indicator %s/%s", handlers.ErrInvalidRequest, req.Name, req.Key))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{
			"name":   req.Name,
			"key":    req.Key,
			"values": line,
		},
	})
}

func (h *Handler) RunBacktest(c *gin.Context) {
	var req handlers.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.backtests.Run(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": result,
	})
}

func (h *Handler) ListBacktests(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	runs, err := h.backtests.List(limit, c.Query("strategy"), c.Query("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	if runs == nil {
		runs = []models.BacktestRun{}
	}

	c.JSON(http.StatusOK, gin.H{
		"code":  0,
		"count": len(runs),
		"data":  runs,
	})
}

func (h *Handler) GetBacktest(c *gin.Context) {
	id := c.Param("id")
	run, err := h.backtests.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "backtest not found", "id": id})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": run,
	})
}

// GetTrades serves a run's trades. Optional query: side (long or short) and
// from/to as RFC 3339 times bounding the exit time.
func (h *Handler) GetTrades(c *gin.Context) {
	id := c.Param("id")
	from, to, err := timeRange(c)
	if err != nil {
		writeError(c, err)
		return
	}

	trades, err := h.backtests.Trades(id, strings.ToUpper(c.Query("side")), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	if trades == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "backtest not found", "id": id})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":  0,
		"count": len(trades.Trades),
		"data":  trades,
	})
}

// GetEquity serves a run's equity curve, optionally bounded by from/to
func (h *Handler) GetEquity(c *gin.Context) {
	id := c.Param("id")
	from, to, err := timeRange(c)
	if err != nil {
		writeError(c, err)
		return
	}

	curve, err := h.backtests.Equity(id, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	if curve == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "backtest not found", "id": id})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":  0,
		"count": len(curve.Points),
		"data":  curve,
	})
}

func (h *Handler) ExportTrades(c *gin.Context) {
	id := c.Param("id")

	dir, err := os.MkdirTemp("", "backtest-export-")
	if err != nil {
		writeError(c, err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "trades.parquet")
	found, err := h.backtests.ExportTrades(id, path)
	if err != nil {
		writeError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "backtest not found", "id": id})
		return
	}

	c.FileAttachment(path, id+"-trades.parquet")
}

func (h *Handler) DeleteBacktest(c *gin.Context) {
	id := c.Param("id")
	found, err := h.backtests.Delete(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "backtest not found", "id": id})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"deleted": id}})
}

func (h *Handler) ImportPrices(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inserted, err := h.prices.Import(c.Request.Context(), req.Symbol, req.Timeframe, req.Days)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{
			"symbol":    req.Symbol,
			"timeframe": req.Timeframe,
			"inserted":  inserted,
		},
	})
}

func timeRange(c *gin.Context) (from, to time.Time, err error) {
	parse := func(name string) (time.Time, error) {
		v := c.Query(name)
		if v == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %s must be an RFC 3339 time", handlers.ErrInvalidRequest, name)
		}
		return t, nil
	}
	if from, err = parse("from"); err != nil {
		return
	}
	to, err = parse("to")
	return
}

// writeError maps caller mistakes to 400 and everything else to 500
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, handlers.ErrInvalidRequest),
		errors.Is(err, handlers.ErrNotEnoughCandles),
		errors.Is(err, strategy.ErrUnknownStrategy):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
