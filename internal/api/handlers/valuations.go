package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/bank-tracker/internal/models"
	"github.com/codyseavey/bank-tracker/internal/services"
)

type ValuationHandler struct {
	valuations *services.ValuationService
}

func NewValuationHandler(valuations *services.ValuationService) *ValuationHandler {
	return &ValuationHandler{valuations: valuations}
}

func (h *ValuationHandler) GetValuation(c *gin.Context) {
	valuation, err := h.valuations.BankValuation(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, valuation)
}

func (h *ValuationHandler) GetHistory(c *gin.Context) {
	history, err := h.valuations.BankHistory(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// SearchItems returns the snapshot history of an exact item name, or up to ten
// similar names when nothing matches exactly
func (h *ValuationHandler) SearchItems(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	resp, err := h.valuations.SearchItem(c.Request.Context(), c.Param("name"), query)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ValuationHandler) CompareBanks(c *gin.Context) {
	a, b := c.Query("a"), c.Query("b")
	if a == "" || b == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameters a and b are required"})
		return
	}

	field, ok := models.ParseValuationField(c.Query("field"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field must be one of low_value, mean_value, high_value"})
		return
	}

	cmp, err := h.valuations.CompareBanks(c.Request.Context(), a, b, field)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

// ExportBank downloads the bank valuation as an xlsx workbook
func (h *ValuationHandler) ExportBank(c *gin.Context) {
	valuation, err := h.valuations.BankValuation(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteValuationXLSX(&buf, valuation); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("%s.xlsx", sanitizeFilename(valuation.Bank.Name))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, services.XLSXContentType, buf.Bytes())
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
