package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gallery-checkout/internal/config"
	"gallery-checkout/internal/handler"
	appmiddleware "gallery-checkout/internal/middleware"
	"gallery-checkout/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

type Server struct {
	echo            *echo.Echo
	paymentHandler  *handler.PaymentHandler
	currencyHandler *handler.CurrencyHandler
	artworkHandler  *handler.ArtworkHandler
	rateLimit       config.RateLimit
}

func NewServer(
	paymentService service.PaymentService,
	artworkService service.ArtworkService,
	converter handler.Converter,
	rateLimit config.RateLimit,
	log *slog.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(appmiddleware.RequestLogger(log))
	e.Use(appmiddleware.CORS())

	s := &Server{
		echo:            e,
		paymentHandler:  handler.NewPaymentHandler(paymentService, log),
		currencyHandler: handler.NewCurrencyHandler(converter, log),
		artworkHandler:  handler.NewArtworkHandler(artworkService, log),
		rateLimit:       rateLimit,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	limiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(s.rateLimit.RPS),
			Burst:     s.rateLimit.Burst,
			ExpiresIn: 3 * time.Minute,
		}),
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many requests"})
		},
	})

	// -------- payment --------
	s.echo.POST("/create-order", s.paymentHandler.CreateOrder, limiter)
	s.echo.POST("/verify-payment", s.paymentHandler.VerifyPayment, limiter)

	// -------- provider webhooks --------
	s.echo.POST("/webhooks/razorpay", s.paymentHandler.RazorpayWebhook)

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api.GET("/currencies", s.currencyHandler.ListCurrencies)
	api.GET("/convert", s.currencyHandler.Convert)
	api.POST("/currency", s.currencyHandler.SetCurrency)

	api.POST("/artworks", s.artworkHandler.CreateArtwork)
	api.GET("/artworks/:slug", s.artworkHandler.GetArtwork)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
