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

func (h *handler) setupOrderRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")

	orders.GET("", h.listOrders)
	orders.POST("", h.createOrder)
	orders.GET(":id", h.getOrder)
	orders.POST("/reconcile", h.reconcileOrderCreations)
	orders.POST("/reconcile-completion", h.reconcileOrderCompletions)
}

func (h *handler) createOrder(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.ErrBadRequest(c, errors.Wrap(err, "invalid request"))
		return
	}

	order, err := h.deps.Orders.CreateOrder(ctx, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTxHash) {
			web.ErrBadRequest(c, err)
			return
		}

		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order.ToResponse())
}

func (h *handler) getOrder(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	if id == "" {
		web.ErrBadRequest(c, errors.Wrap(ErrParamRequired, "order id"))
		return
	}

	order, err := h.deps.Orders.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			web.ErrNotFound(c, errors.Wrap(ErrNotFound, "order"))
			return
		}

		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, order.ToResponse())
}

func (h *handler) listOrders(c *gin.Context) {
	ctx := c.Request.Context()

	status := c.Query("status")

	pag, err := resolvePagination(c)
	if err != nil {
		web.ErrBadRequest(c, err)
		return
	}

	orders, totalCount, err := h.deps.Orders.ListOrders(ctx, pag.Page, pag.PageSize, status)
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	response := make([]*models.OrderResponse, 0, len(orders))
	for _, order := range orders {
		response = append(response, order.ToResponse())
	}

	c.JSON(http.StatusOK, models.NewPaginatedResponse(response, pag.Page, pag.PageSize, totalCount))
}

func (h *handler) reconcileOrderCreations(c *gin.Context) {
	ctx := c.Request.Context()

	progressed, err := h.deps.Orders.ReconcileCreations(ctx, c.Query("user_id"))
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, reconcileOrdersResponse(progressed))
}

func (h *handler) reconcileOrderCompletions(c *gin.Context) {
	ctx := c.Request.Context()

	progressed, err := h.deps.Orders.ReconcileCompletions(ctx, c.Query("user_id"))
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, reconcileOrdersResponse(progressed))
}

func reconcileOrdersResponse(progressed []*models.Order) gin.H {
	response := make([]*models.OrderResponse, 0, len(progressed))
	for _, order := range progressed {
		response = append(response, order.ToResponse())
	}

	return gin.H{"count": len(response), "orders": response}
}
