package gateway

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/FairyDevicesRD/ai.chat.kmp/internal/session"
)

// Captured photos larger than this are rejected before decoding.
const maxImageBytes = 10 << 20

// InitRoutes wires the UI routes.
func InitRoutes(e *echo.Echo, controller *session.Controller, hub *Hub, logger *zap.Logger) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "aichat",
		})
	})

	api := e.Group("/api/v1")

	api.GET("/state", func(c echo.Context) error {
		return c.JSON(http.StatusOK, newStateMessage(controller.Snapshot()))
	})

	// Record button activation: start or stop depending on the current
	// state.
	api.POST("/record", func(c echo.Context) error {
		controller.ToggleRecord()
		return c.JSON(http.StatusOK, newStateMessage(controller.Snapshot()))
	})

	api.POST("/image", func(c echo.Context) error {
		jpeg, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImageBytes))
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "Failed to read image body",
			})
		}
		if err := controller.CapturedImage(jpeg); err != nil {
			logger.Warn("rejected captured image", zap.Error(err))
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error:   "invalid_image",
				Message: "Image is not a decodable JPEG",
			})
		}
		return c.JSON(http.StatusOK, newStateMessage(controller.Snapshot()))
	})

	api.POST("/error/clear", func(c echo.Context) error {
		controller.ClearError()
		return c.JSON(http.StatusOK, newStateMessage(controller.Snapshot()))
	})

	e.GET("/ws", hub.ServeWS)
}
