package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/bank-tracker/internal/models"
	"github.com/codyseavey/bank-tracker/internal/services"
)

type BankHandler struct {
	store      *services.BankStore
	snapshots  *services.SnapshotService
	valuations *services.ValuationService
}

func NewBankHandler(store *services.BankStore, snapshots *services.SnapshotService, valuations *services.ValuationService) *BankHandler {
	return &BankHandler{
		store:      store,
		snapshots:  snapshots,
		valuations: valuations,
	}
}

type bankSummary struct {
	models.Bank
	Totals models.ValueTotals `json:"totals"`
}

func (h *BankHandler) ListBanks(c *gin.Context) {
	ctx := c.Request.Context()

	banks, err := h.store.ListBanks(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]bankSummary, 0, len(banks))
	for _, bank := range banks {
		totals, err := h.valuations.Totals(ctx, bank.Name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out = append(out, bankSummary{Bank: bank, Totals: totals})
	}

	c.JSON(http.StatusOK, gin.H{"banks": out})
}

// ImportBank creates a bank from either a pasted TSV dump or a list of items
func (h *BankHandler) ImportBank(c *gin.Context) {
	var req models.ImportBankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries := req.Items
	malformed := 0
	if strings.TrimSpace(req.TSV) != "" {
		if len(req.Items) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "send either tsv or items, not both"})
			return
		}
		parsed, err := services.ParseInventoryTSV(strings.NewReader(req.TSV))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		entries = parsed.Entries
		malformed = parsed.Malformed
	}

	if len(entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no inventory items to import"})
		return
	}
	for _, e := range entries {
		if e.Quantity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must not be negative"})
			return
		}
		if strings.TrimSpace(e.ItemName) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "item name is required"})
			return
		}
	}

	result, err := h.snapshots.ImportBank(c.Request.Context(), req.Name, entries)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"result":          result,
		"malformed_lines": malformed,
	})
}

func (h *BankHandler) DeleteBank(c *gin.Context) {
	name := c.Param("name")

	if err := h.snapshots.DeleteBank(c.Request.Context(), name); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "bank deleted"})
}

// GetBankItems returns every stored item of the bank with its pricing category
func (h *BankHandler) GetBankItems(c *gin.Context) {
	ctx := c.Request.Context()

	bank, err := h.store.FindBank(ctx, c.Param("name"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	items, err := h.store.ItemsForBank(ctx, bank.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	totals, err := h.valuations.Totals(ctx, bank.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bank":   bank,
		"items":  items,
		"totals": totals,
	})
}

// RepriceBank records a new price snapshot of the bank, or answers 429 while the
// bank is still inside its cooldown window
func (h *BankHandler) RepriceBank(c *gin.Context) {
	result, err := h.snapshots.RepriceBank(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if !result.Admitted {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":                  "bank was priced recently",
			"remaining_wait":         result.RemainingWait.String(),
			"remaining_wait_seconds": int64(math.Ceil(result.RemainingWait.Seconds())),
			"next_allowed_at":        result.NextAllowedAt,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// writeServiceError maps service errors to HTTP status codes
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidBankName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrBankNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrBankExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrPriceFeedUnavailable):
		log.Printf("API: price feed failure: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		log.Printf("API: request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
