package httpapi

import (
	_ "embed"
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/aqi-predictor/internal/charts"
	"github.com/i474232898/aqi-predictor/internal/prediction"
	"github.com/i474232898/aqi-predictor/internal/store"
)

// notAvailable is reported for every stat when the dataset is absent or empty.
const notAvailable = "N/A"

//go:embed web/index.html
var indexHTML []byte

var validate = validator.New()

// Deps are the read-only collaborators shared by all handlers.
type Deps struct {
	Dataset        *store.Dataset
	Service        *prediction.Service
	TopStatesLimit int
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Dataset == nil {
		deps.Dataset = store.Unavailable(nil)
	}
	if deps.TopStatesLimit <= 0 {
		deps.TopStatesLimit = 15
	}

	app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.Send(indexHTML)
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":         "ok",
			"service":        "aqi-predictor",
			"model_loaded":   deps.Service.ModelAvailable(),
			"dataset_loaded": deps.Dataset.Available(),
		})
	})

	app.Get("/get-cities", func(c *fiber.Ctx) error {
		cities, err := deps.Dataset.ListCities()
		if err != nil {
			if errors.Is(err, store.ErrDataUnavailable) {
				return fiber.NewError(fiber.StatusNotFound, "Dataset not loaded, cannot get cities.")
			}
			if errors.Is(err, store.ErrMissingColumns) {
				return fiber.NewError(fiber.StatusInternalServerError, "CSV is missing one or more required columns: "+err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Could not retrieve city list: "+err.Error())
		}
		return c.JSON(cities)
	})

	app.Post("/predict-city", func(c *fiber.Ctx) error {
		var req prediction.CityCoordinate
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := deps.Service.Predict(c.UserContext(), req)
		if err != nil {
			return predictionError(err)
		}
		return c.JSON(result)
	})

	api := app.Group("/api")

	api.Get("/dataset-stats", func(c *fiber.Ctx) error {
		// A header-only file has nothing to summarise either.
		if !deps.Dataset.Available() || deps.Dataset.Len() == 0 {
			return c.JSON(statsResponse{
				TotalRecords:  notAvailable,
				CitiesCount:   notAvailable,
				StatesCount:   notAvailable,
				MostCommonAQI: notAvailable,
			})
		}

		stats, err := deps.Dataset.Stats()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Error calculating stats: "+err.Error())
		}

		mostCommon := stats.MostCommonAQI
		if mostCommon == "" {
			mostCommon = notAvailable
		}
		return c.JSON(statsResponse{
			TotalRecords:  stats.TotalRecords,
			CitiesCount:   stats.CitiesCount,
			StatesCount:   stats.StatesCount,
			MostCommonAQI: mostCommon,
		})
	})

	api.Get("/visualizations", func(c *fiber.Ctx) error {
		plots, err := charts.Build(deps.Dataset, deps.TopStatesLimit)
		if err != nil {
			if errors.Is(err, store.ErrDataUnavailable) {
				return fiber.NewError(fiber.StatusNotFound, "Dataset not loaded.")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Error generating visualizations: "+err.Error())
		}
		return c.JSON(plots)
	})
}

// statsResponse fields are numbers, or "N/A" when the dataset is absent.
type statsResponse struct {
	TotalRecords  any    `json:"total_records"`
	CitiesCount   any    `json:"cities_count"`
	StatesCount   any    `json:"states_count"`
	MostCommonAQI string `json:"most_common_aqi"`
}

// predictionError maps pipeline errors to HTTP statuses.
func predictionError(err error) error {
	switch {
	case errors.Is(err, prediction.ErrModelUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, prediction.ErrCoordinatesMissing):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, prediction.ErrConfigurationMissing),
		errors.Is(err, prediction.ErrUpstream),
		errors.Is(err, prediction.ErrComputation):
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	default:
		log.Printf("ERROR: unclassified prediction error: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "prediction failed: "+err.Error())
	}
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
