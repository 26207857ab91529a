package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"gallery-checkout/internal/dto"
	"gallery-checkout/internal/service"

	"github.com/labstack/echo/v4"
)

type ArtworkHandler struct {
	artworkService service.ArtworkService
	log            *slog.Logger
}

func NewArtworkHandler(artworkService service.ArtworkService, log *slog.Logger) *ArtworkHandler {
	return &ArtworkHandler{
		artworkService: artworkService,
		log:            log,
	}
}

func (h *ArtworkHandler) CreateArtwork(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateArtworkRequest
	if err := c.Bind(&req); err != nil {
		return catalogError(c, h.log, fmt.Errorf("%w: malformed request body", service.ErrInvalidRequest))
	}

	artwork, err := h.artworkService.Create(ctx, &req)
	if err != nil {
		return catalogError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, artwork)
}

func (h *ArtworkHandler) GetArtwork(c echo.Context) error {
	ctx := c.Request().Context()

	artwork, err := h.artworkService.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		return catalogError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, artwork)
}
