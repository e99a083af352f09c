package httpjson

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/offerbook-hq/offerbook/db"
	web "github.com/offerbook-hq/offerbook/http"
	"github.com/offerbook-hq/offerbook/logging"
	"github.com/offerbook-hq/offerbook/models"
	"github.com/offerbook-hq/offerbook/services"
)

type handler struct {
	*gin.Engine

	deps   Dependencies
	logger zerolog.Logger
}

type Config struct {
	Dependencies

	Addr           string
	AllowedOrigins string
	LogRequests    bool

	Logger zerolog.Logger
}

type Dependencies struct {
	Database db.Database
	Offers   OfferService
	Orders   OrderService
	Metrics  *services.MetricsService
}

// OfferService defines the interface for offer service operations
type OfferService interface {
	CreateOffer(ctx context.Context, req *models.CreateOfferRequest) (*models.Offer, error)
	GetOffer(ctx context.Context, id string) (*models.Offer, error)
	ListOffers(ctx context.Context, page, pageSize int, status string) ([]*models.Offer, int, error)
	ReconcileCreations(ctx context.Context, userID string) ([]*models.Offer, error)
	ReconcileStatusUpdates(ctx context.Context, userID string) ([]*models.Offer, error)
}

// OrderService defines the interface for order service operations
type OrderService interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, page, pageSize int, status string) ([]*models.Order, int, error)
	ReconcileCreations(ctx context.Context, userID string) ([]*models.Order, error)
	ReconcileCompletions(ctx context.Context, userID string) ([]*models.Order, error)
}

const (
	// reconciliation endpoints fan out over RPC, give them room
	requestTimeout = 30 * time.Second
	rwTimeout      = 35 * time.Second
	maxPageSize    = 100
)

var (
	ErrNotFound      = errors.New("not found")
	ErrParamRequired = errors.New("param required")
)

func New(cfg Config) *http.Server {
	return &http.Server{
		Addr:    cfg.Addr,
		Handler: newHandler(cfg, gin.New()),

		// Time to read the request headers/body
		ReadTimeout: rwTimeout,

		// Time to write the response
		WriteTimeout: rwTimeout,

		// Time to keep connections alive
		IdleTimeout: 60 * time.Second,

		// Max header bytes (1MB)
		MaxHeaderBytes: 1024 * 1024,
	}
}

func newHandler(cfg Config, router *gin.Engine) *handler {
	h := &handler{
		Engine: router,
		deps:   cfg.Dependencies,
		logger: cfg.Logger.With().Str(logging.FieldModule, "api").Logger(),
	}

	logLevel := zerolog.DebugLevel
	if cfg.LogRequests {
		logLevel = zerolog.InfoLevel
	}

	h.Use(
		gin.Recovery(),
		web.Zerolog(cfg.Logger, logLevel),
		web.Timeout(requestTimeout, cfg.Logger),
		web.CORS(cfg.AllowedOrigins),
	)

	h.setupAPIRoutes()
	h.setupObservabilityRoutes()

	return h
}

func (h *handler) setupAPIRoutes() {
	v1 := h.Group("/api/v1")

	h.setupOfferRoutes(v1)
	h.setupOrderRoutes(v1)
	h.setupBlockchainRoutes(v1)
}

func (h *handler) setupObservabilityRoutes() {
	h.GET("/health", h.getHealthCheck)

	if h.deps.Metrics != nil {
		h.GET("/metrics", gin.WrapH(h.deps.Metrics.Handler()))
	}
}

func (h *handler) getHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type paginationParams struct {
	Page     int
	PageSize int
}

var errPageSize = errors.Errorf("invalid page_size parameter (must be between 1 and %d)", maxPageSize)

func resolvePagination(c *gin.Context) (paginationParams, error) {
	var (
		pageRaw     = c.DefaultQuery("page", "1")
		pageSizeRaw = c.DefaultQuery("page_size", "20")
	)

	page, err := strconv.Atoi(pageRaw)
	if err != nil || page < 1 {
		return paginationParams{}, errors.New("invalid page parameter")
	}

	pageSize, err := strconv.Atoi(pageSizeRaw)
	if err != nil || pageSize < 1 || pageSize > maxPageSize {
		return paginationParams{}, errPageSize
	}

	return paginationParams{
		Page:     page,
		PageSize: pageSize,
	}, nil
}
