package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bins-status-backend/internal/council"
	"bins-status-backend/internal/model"
	"bins-status-backend/internal/store"
)

type registerAddressRequest struct {
	Postcode string `json:"postcode" binding:"required"`
}

type selectAddressRequest struct {
	Postcode string `json:"postcode" binding:"required"`
	UPRN     string `json:"uprn" binding:"required"`
}

// RegisterAddress handles POST /api/addresses: the initial setup step. A
// postcode resolving to exactly one address completes setup directly; zero
// matches reject the attempt; several matches return the candidates and
// persist nothing until one is selected.
func (h *Handler) RegisterAddress(c *gin.Context) {
	var req registerAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "postcode is required"})
		return
	}

	postcode := normalizePostcode(req.Postcode)
	addresses, err := h.resolver.LookupAddresses(c.Request.Context(), postcode)
	if err != nil {
		if errors.Is(err, council.ErrNoAddresses) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no addresses found for postcode"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "address lookup failed"})
		return
	}

	if len(addresses) > 1 {
		c.JSON(http.StatusMultipleChoices, gin.H{
			"postcode":  postcode,
			"addresses": addresses,
		})
		return
	}

	h.createAddress(c, postcode, addresses[0])
}

// SelectAddress handles POST /api/addresses/select: completes an ambiguous
// setup by naming one of the looked-up candidates.
func (h *Handler) SelectAddress(c *gin.Context) {
	var req selectAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "postcode and uprn are required"})
		return
	}

	postcode := normalizePostcode(req.Postcode)
	addresses, err := h.resolver.LookupAddresses(c.Request.Context(), postcode)
	if err != nil {
		if errors.Is(err, council.ErrNoAddresses) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no addresses found for postcode"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "address lookup failed"})
		return
	}

	for _, addr := range addresses {
		if addr.UPRN == req.UPRN {
			h.createAddress(c, postcode, addr)
			return
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "uprn does not match any address for this postcode"})
}

// createAddress persists the resolved address and starts its coordinator.
func (h *Handler) createAddress(c *gin.Context, postcode string, resolved council.Address) {
	addr := model.Address{
		Postcode: postcode,
		UPRN:     resolved.UPRN,
		Label:    resolved.Label,
	}

	if err := h.store.CreateAddress(c.Request.Context(), &addr); err != nil {
		if errors.Is(err, store.ErrAddressExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "address already configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save address"})
		return
	}

	if h.manager != nil {
		h.manager.StartAddress(h.appCtx, addr.ID, addr.UPRN)
	}
	c.JSON(http.StatusCreated, addr)
}

// ListAddresses handles GET /api/addresses.
func (h *Handler) ListAddresses(c *gin.Context) {
	addresses, err := h.store.ListAddresses(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve addresses"})
		return
	}
	c.JSON(http.StatusOK, addresses)
}

// DeleteAddress handles DELETE /api/addresses/:id: stops the coordinator and
// removes the configuration entry.
func (h *Handler) DeleteAddress(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address ID"})
		return
	}

	if h.manager != nil {
		h.manager.StopAddress(id)
	}

	if err := h.store.DeleteAddress(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "address not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete address"})
		return
	}
	c.Status(http.StatusNoContent)
}

func normalizePostcode(p string) string {
	return strings.ToUpper(strings.TrimSpace(p))
}
