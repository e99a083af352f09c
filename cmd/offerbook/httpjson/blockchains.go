package httpjson

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	web "github.com/offerbook-hq/offerbook/http"
	"github.com/offerbook-hq/offerbook/models"
)

func (h *handler) setupBlockchainRoutes(rg *gin.RouterGroup) {
	blockchains := rg.Group("/blockchains")

	blockchains.GET("", h.listBlockchains)
	blockchains.POST("", h.createBlockchain)
}

func (h *handler) listBlockchains(c *gin.Context) {
	ctx := c.Request.Context()

	chains, err := h.deps.Database.ListBlockchains(ctx)
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"blockchains": chains})
}

func (h *handler) createBlockchain(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.CreateBlockchainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.ErrBadRequest(c, errors.Wrap(err, "invalid request"))
		return
	}

	if len(req.RPC) == 0 {
		web.ErrBadRequest(c, errors.New("at least one RPC endpoint is required"))
		return
	}

	now := time.Now().UTC()
	chain := &models.Blockchain{
		ChainID:   req.ChainID,
		Name:      req.Name,
		RPC:       req.RPC,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.deps.Database.CreateBlockchain(ctx, chain); err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, chain)
}
