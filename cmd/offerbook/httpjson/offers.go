package httpjson

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/offerbook-hq/offerbook/db"
	web "github.com/offerbook-hq/offerbook/http"
	"github.com/offerbook-hq/offerbook/models"
	"github.com/offerbook-hq/offerbook/services"
)

func (h *handler) setupOfferRoutes(rg *gin.RouterGroup) {
	offers := rg.Group("/offers")

	offers.GET("", h.listOffers)
	offers.POST("", h.createOffer)
	offers.GET(":id", h.getOffer)
	offers.POST("/reconcile", h.reconcileOfferCreations)
	offers.POST("/reconcile-status", h.reconcileOfferStatuses)
}

func (h *handler) createOffer(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.ErrBadRequest(c, errors.Wrap(err, "invalid request"))
		return
	}

	offer, err := h.deps.Offers.CreateOffer(ctx, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTxHash) {
			web.ErrBadRequest(c, err)
			return
		}

		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, offer.ToResponse())
}

func (h *handler) getOffer(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	if id == "" {
		web.ErrBadRequest(c, errors.Wrap(ErrParamRequired, "offer id"))
		return
	}

	offer, err := h.deps.Offers.GetOffer(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			web.ErrNotFound(c, errors.Wrap(ErrNotFound, "offer"))
			return
		}

		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, offer.ToResponse())
}

func (h *handler) listOffers(c *gin.Context) {
	ctx := c.Request.Context()

	status := c.Query("status")

	pag, err := resolvePagination(c)
	if err != nil {
		web.ErrBadRequest(c, err)
		return
	}

	offers, totalCount, err := h.deps.Offers.ListOffers(ctx, pag.Page, pag.PageSize, status)
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	response := make([]*models.OfferResponse, 0, len(offers))
	for _, offer := range offers {
		response = append(response, offer.ToResponse())
	}

	c.JSON(http.StatusOK, models.NewPaginatedResponse(response, pag.Page, pag.PageSize, totalCount))
}

// reconcileOfferCreations resolves pending offers against their deposit
// transactions. Scoping to a single user via the user_id query is optional.
// The response always carries the offers that progressed; records that could
// not be resolved are simply absent and will be retried on the next call.
func (h *handler) reconcileOfferCreations(c *gin.Context) {
	ctx := c.Request.Context()

	progressed, err := h.deps.Offers.ReconcileCreations(ctx, c.Query("user_id"))
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, reconcileOffersResponse(progressed))
}

func (h *handler) reconcileOfferStatuses(c *gin.Context) {
	ctx := c.Request.Context()

	progressed, err := h.deps.Offers.ReconcileStatusUpdates(ctx, c.Query("user_id"))
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, reconcileOffersResponse(progressed))
}

func reconcileOffersResponse(progressed []*models.Offer) gin.H {
	response := make([]*models.OfferResponse, 0, len(progressed))
	for _, offer := range progressed {
		response = append(response, offer.ToResponse())
	}

	return gin.H{"count": len(response), "offers": response}
}
