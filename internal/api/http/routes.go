package httpapi

import (
	"bytes"
	"errors"
	"io"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-anomaly/internal/anomaly"
	"github.com/i474232898/weather-anomaly/internal/dataset"
	"github.com/i474232898/weather-anomaly/internal/store"
	"github.com/i474232898/weather-anomaly/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	v1 := app.Group("/api/v1")

	v1.Post("/history", func(c *fiber.Ctx) error {
		body, err := uploadBody(c)
		if err != nil {
			return err
		}

		ds, err := service.ImportHistory(c.UserContext(), body)
		if err != nil {
			return toHTTPError(err)
		}

		return c.Status(fiber.StatusCreated).JSON(ds)
	})

	v1.Get("/cities", func(c *fiber.Ctx) error {
		cities, err := service.Cities(c.UserContext())
		if err != nil {
			return toHTTPError(err)
		}

		ds, err := service.ActiveDataset(c.UserContext())
		if err != nil {
			return toHTTPError(err)
		}

		return c.JSON(fiber.Map{
			"dataset": ds,
			"cities":  cities,
		})
	})

	city := v1.Group("/cities/:city")

	city.Get("/stats", func(c *fiber.Ctx) error {
		summary, err := service.Describe(c.UserContext(), c.Params("city"))
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(newSummaryResponse(c.Params("city"), summary))
	})

	city.Get("/baselines", func(c *fiber.Ctx) error {
		baselines, err := service.Baselines(c.UserContext(), c.Params("city"))
		if err != nil {
			return toHTTPError(err)
		}

		rows := make([]baselineResponse, 0, len(baselines))
		for _, bl := range baselines.Table() {
			rows = append(rows, newBaselineResponse(bl))
		}

		return c.JSON(fiber.Map{
			"city":      c.Params("city"),
			"baselines": rows,
		})
	})

	city.Get("/anomalies", func(c *fiber.Ctx) error {
		var q anomaliesQuery
		if err := c.QueryParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		stats, err := service.RollingAnomalies(c.UserContext(), c.Params("city"), q.Window)
		if err != nil {
			return toHTTPError(err)
		}

		points := make([]rollingResponse, len(stats))
		anomalies := 0
		for i, st := range stats {
			points[i] = rollingResponse(st)
			if st.IsAnomaly {
				anomalies++
			}
		}

		return c.JSON(fiber.Map{
			"city":      c.Params("city"),
			"anomalies": anomalies,
			"points":    points,
		})
	})

	city.Get("/current", func(c *fiber.Ctx) error {
		loc := weather.Location{
			City:    c.Params("city"),
			Country: c.Query("country"),
		}

		assessment, err := service.CheckCurrent(c.UserContext(), loc)
		if err != nil {
			return toHTTPError(err)
		}

		return c.JSON(assessment)
	})

	city.Post("/classify", func(c *fiber.Ctx) error {
		var req classifyRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reading := anomaly.CurrentReading{Temperature: *req.Temperature}
		if req.Season != "" {
			season, err := anomaly.ParseSeason(req.Season)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			reading.Season = season
		}

		verdict, err := service.ClassifyReading(c.UserContext(), c.Params("city"), reading)
		if err != nil {
			return toHTTPError(err)
		}

		return c.JSON(verdict)
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := locReq.toLocation()
		snapshot, err := service.GetLatest(c.UserContext(), loc)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		return c.JSON(snapshot)
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Location.toLocation()
		snapshots, err := service.GetRange(c.UserContext(), loc, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"location":  loc,
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})
}

// toHTTPError maps domain errors onto HTTP status codes.
func toHTTPError(err error) error {
	var parseErr *dataset.ParseError
	switch {
	case errors.As(err, &parseErr), errors.Is(err, dataset.ErrEmpty), errors.Is(err, dataset.ErrMissingColumn):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, anomaly.ErrInsufficientData):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "not enough data: "+err.Error())
	case errors.Is(err, anomaly.ErrUnknownSeason):
		return fiber.NewError(fiber.StatusNotFound, "no data: "+err.Error())
	case errors.Is(err, anomaly.ErrInvalidMonth):
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	case errors.Is(err, weather.ErrInvalidAPIKey):
		return fiber.NewError(fiber.StatusBadGateway, "invalid API key")
	case errors.Is(err, weather.ErrNoProviders), errors.Is(err, weather.ErrNoReading):
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch current weather")
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no data: "+err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// uploadBody accepts either a multipart form with a "file" field or a raw
// CSV request body.
func uploadBody(c *fiber.Ctx) (io.Reader, error) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "cannot read uploaded file")
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "cannot read uploaded file")
		}
		return bytes.NewReader(data), nil
	}

	body := c.Body()
	if len(body) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "a CSV file is required")
	}
	return bytes.NewReader(body), nil
}

// classifyRequest is the body of the classify endpoint. Season is optional
// and defaults to the current season.
type classifyRequest struct {
	Temperature *float64 `json:"temperature" validate:"required"`
	Season      string   `json:"season"`
}

type anomaliesQuery struct {
	Window int `query:"window" validate:"gte=0,lte=10000"`
}

// baselineResponse renders undefined statistics as null.
type baselineResponse struct {
	Season anomaly.Season `json:"season"`
	Mean   *float64       `json:"mean"`
	StdDev *float64       `json:"stddev"`
	Count  int            `json:"count"`
}

func newBaselineResponse(bl anomaly.SeasonalBaseline) baselineResponse {
	return baselineResponse{
		Season: bl.Season,
		Mean:   finite(bl.Mean),
		StdDev: finite(bl.StdDev),
		Count:  bl.Count,
	}
}

type rollingResponse struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Mean        float64   `json:"mean"`
	StdDev      float64   `json:"stddev"`
	LowerBound  float64   `json:"lowerBound"`
	UpperBound  float64   `json:"upperBound"`
	IsAnomaly   bool      `json:"isAnomaly"`
}

type summaryResponse struct {
	City   string    `json:"city"`
	Count  int       `json:"count"`
	Mean   *float64  `json:"mean"`
	StdDev *float64  `json:"stddev"`
	Min    *float64  `json:"min"`
	P25    *float64  `json:"p25"`
	Median *float64  `json:"median"`
	P75    *float64  `json:"p75"`
	Max    *float64  `json:"max"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

func newSummaryResponse(city string, s anomaly.Summary) summaryResponse {
	return summaryResponse{
		City:   city,
		Count:  s.Count,
		Mean:   finite(s.Mean),
		StdDev: finite(s.StdDev),
		Min:    finite(s.Min),
		P25:    finite(s.P25),
		Median: finite(s.Median),
		P75:    finite(s.P75),
		Max:    finite(s.Max),
		From:   s.From,
		To:     s.To,
	}
}

// finite returns nil for NaN and infinities, which JSON cannot encode.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// locationQuery holds query parameters for identifying a location.
type locationQuery struct {
	City    string `validate:"required"`
	Country string
}

func (l locationQuery) toLocation() weather.Location {
	return weather.Location{
		City:    l.City,
		Country: l.Country,
	}
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	q.City = c.Query("city")
	q.Country = c.Query("country")

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location locationQuery
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	h.Location = loc

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := dataset.ParseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := dataset.ParseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}
