package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/analysis"
)

var validate = validator.New()

// ServiceName is the identity reported by the health endpoint.
const ServiceName = "NASA Weather Analyzer API"

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *analysis.Service) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "NASA Weather Likelihood Analyzer API",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"/api/analyze":         "POST - Analyze weather likelihood for a location and date",
				"/api/forecast":        "POST - Experimental model-based temperature forecast",
				"/api/recommendations": "POST - Model-assisted guidance for a location and date",
				"/api/health":          "GET - Health check",
			},
		})
	})

	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": ServiceName,
		})
	})

	app.Post("/api/analyze", func(c *fiber.Ctx) error {
		var req analyzeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest,
				"Missing required parameters: latitude, longitude, month, day")
		}

		result, err := service.AnalyzeHistorical(c.UserContext(), *req.Latitude, *req.Longitude, *req.Month, *req.Day)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(result)
	})

	app.Post("/api/forecast", func(c *fiber.Ctx) error {
		var req forecastRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest,
				"Missing required parameters: latitude, longitude, date")
		}

		start, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid date. Must be YYYY-MM-DD")
		}

		result, err := service.AnalyzeForecast(c.UserContext(), *req.Latitude, *req.Longitude, start, req.Days)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(result)
	})

	app.Post("/api/recommendations", func(c *fiber.Ctx) error {
		var req recommendationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest,
				"Missing required parameters: latitude, longitude, month, day, date")
		}

		start, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid date. Must be YYYY-MM-DD")
		}

		result, err := service.AnalyzeRecommendation(c.UserContext(),
			*req.Latitude, *req.Longitude, *req.Month, *req.Day, start, req.Days)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(result)
	})
}

// analyzeRequest is the /api/analyze body. Pointer fields distinguish
// missing parameters from zero values.
type analyzeRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	Month     *int     `json:"month" validate:"required"`
	Day       *int     `json:"day" validate:"required"`
}

// forecastRequest is the /api/forecast body. Days is optional; the
// service applies its default horizon when it is zero.
type forecastRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	Date      string   `json:"date" validate:"required"`
	Days      int      `json:"days"`
}

// recommendationRequest is the /api/recommendations body: the analyze
// fields plus the forecast start date and optional horizon.
type recommendationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	Month     *int     `json:"month" validate:"required"`
	Day       *int     `json:"day" validate:"required"`
	Date      string   `json:"date" validate:"required"`
	Days      int      `json:"days"`
}

// httpError maps the domain error taxonomy onto HTTP statuses, keeping
// the typed message as the response body.
func httpError(err error) error {
	switch {
	case errors.Is(err, analysis.ErrInvalidRequest):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, analysis.ErrInsufficientData):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, analysis.ErrDataUnavailable):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, analysis.ErrModelTrainingFailed):
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "An unexpected error occurred. Please try again.")
	}
}
