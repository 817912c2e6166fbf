package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-anomaly/internal/anomaly"
	"github.com/i474232898/weather-anomaly/internal/store"
	"github.com/i474232898/weather-anomaly/internal/weather"
)

const historyCSV = `city,timestamp,temperature,season
Berlin,2020-04-01,10,spring
Berlin,2020-04-02,12,spring
Berlin,2020-04-03,14,spring
Berlin,2020-10-01,9,autumn
`

type stubProvider struct {
	temp float64
	err  error
}

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) Fetch(_ context.Context, _ weather.Location) (weather.ProviderReading, error) {
	if p.err != nil {
		return weather.ProviderReading{}, p.err
	}
	return weather.ProviderReading{
		ProviderName: "stub",
		Timestamp:    time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC),
		TemperatureC: p.temp,
		Condition:    weather.ConditionClear,
	}, nil
}

func newTestApp(t *testing.T, month time.Month, providers ...weather.Provider) *fiber.App {
	t.Helper()

	clock := anomaly.ClockFunc(func() time.Time {
		return time.Date(2024, month, 10, 12, 0, 0, 0, time.UTC)
	})
	svc := weather.NewService(store.NewMemoryStore(10, time.Hour), providers, clock, 0)

	app := fiber.New()
	RegisterRoutes(app, svc)
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var body map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp.StatusCode, body
}

func upload(t *testing.T, app *fiber.App, csv string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/history", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	if code, body := do(t, app, req); code != http.StatusCreated {
		t.Fatalf("upload: expected status %d, got %d (%v)", http.StatusCreated, code, body)
	}
}

func TestUploadMultipart(t *testing.T) {
	app := newTestApp(t, time.April)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "history.csv")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(historyCSV))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/history", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	code, body := do(t, app, req)
	if code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d (%v)", http.StatusCreated, code, body)
	}
	if body["records"] != float64(4) {
		t.Fatalf("expected 4 records, got %v", body["records"])
	}
}

func TestUploadRejectsBadCSV(t *testing.T) {
	app := newTestApp(t, time.April)

	cases := map[string]string{
		"empty body":     "",
		"missing column": "city,timestamp,temperature\nBerlin,2020-04-01,10\n",
		"bad season":     "city,timestamp,temperature,season\nBerlin,2020-04-01,10,monsoon\n",
		"bad number":     "city,timestamp,temperature,season\nBerlin,2020-04-01,warm,spring\n",
		"nan number":     "city,timestamp,temperature,season\nBerlin,2020-04-01,10,spring\nBerlin,2020-04-02,NaN,spring\n",
	}
	for name, csv := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/history", strings.NewReader(csv))
		if code, _ := do(t, app, req); code != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d, got %d", name, http.StatusBadRequest, code)
		}
	}
}

func TestCitiesAndBaselines(t *testing.T) {
	app := newTestApp(t, time.April)

	code, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/cities", nil))
	if code != http.StatusNotFound {
		t.Fatalf("expected status %d before upload, got %d", http.StatusNotFound, code)
	}

	upload(t, app, historyCSV)

	code, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/cities", nil))
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if cities := body["cities"].([]any); len(cities) != 1 || cities[0] != "Berlin" {
		t.Fatalf("unexpected cities %v", cities)
	}

	code, body = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/cities/Berlin/baselines", nil))
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	rows := body["baselines"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected 2 seasons, got %d", len(rows))
	}
	spring := rows[0].(map[string]any)
	if spring["season"] != "spring" || spring["mean"] != 12.0 || spring["stddev"] != 2.0 {
		t.Fatalf("unexpected spring baseline %v", spring)
	}
	autumn := rows[1].(map[string]any)
	if autumn["stddev"] != nil {
		t.Fatalf("expected null stddev for a single-record season, got %v", autumn["stddev"])
	}

	code, body = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/cities/Berlin/stats", nil))
	if code != http.StatusOK || body["count"] != float64(4) {
		t.Fatalf("unexpected stats response %d %v", code, body)
	}

	code, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/cities/Tokyo/baselines", nil))
	if code != http.StatusNotFound {
		t.Fatalf("expected status %d for unknown city, got %d", http.StatusNotFound, code)
	}
}

func TestAnomaliesWindowValidation(t *testing.T) {
	app := newTestApp(t, time.April)
	upload(t, app, historyCSV)

	code, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/cities/Berlin/anomalies?window=3", nil))
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if points := body["points"].([]any); len(points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(points))
	}

	code, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/cities/Berlin/anomalies?window=-1", nil))
	if code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, code)
	}
}

func TestClassifyStatusCodes(t *testing.T) {
	app := newTestApp(t, time.April)
	upload(t, app, historyCSV)

	classify := func(body string) (int, map[string]any) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cities/Berlin/classify", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return do(t, app, req)
	}

	code, body := classify(`{"temperature": 25}`)
	if code != http.StatusOK || body["anomalous"] != true || body["season"] != "spring" {
		t.Fatalf("unexpected verdict %d %v", code, body)
	}

	if code, _ := classify(`{"temperature": 9, "season": "autumn"}`); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, code)
	}
	if code, _ := classify(`{"temperature": 1, "season": "winter"}`); code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, code)
	}
	if code, _ := classify(`{"season": "spring"}`); code != http.StatusBadRequest {
		t.Fatalf("expected status %d for missing temperature, got %d", http.StatusBadRequest, code)
	}
	if code, _ := classify(`{"temperature": 1, "season": "monsoon"}`); code != http.StatusBadRequest {
		t.Fatalf("expected status %d for bad season, got %d", http.StatusBadRequest, code)
	}
}

func TestCurrentStatusCodes(t *testing.T) {
	app := newTestApp(t, time.April, stubProvider{temp: 13})
	upload(t, app, historyCSV)

	code, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/cities/Berlin/current?country=DE", nil))
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d (%v)", http.StatusOK, code, body)
	}
	verdict := body["verdict"].(map[string]any)
	if verdict["anomalous"] != false {
		t.Fatalf("expected a normal reading, got %v", verdict)
	}

	code, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/weather/current?city=Berlin&country=DE", nil))
	if code != http.StatusOK {
		t.Fatalf("expected stored snapshot, got status %d", code)
	}

	badKey := newTestApp(t, time.April, stubProvider{err: weather.ErrInvalidAPIKey})
	upload(t, badKey, historyCSV)
	code, body = do(t, badKey, httptest.NewRequest(http.MethodGet, "/api/v1/cities/Berlin/current", nil))
	if code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, code)
	}
}

// TestHistoryRangeValidation verifies that the history endpoint requires a
// well-formed, ordered time range.
func TestHistoryRangeValidation(t *testing.T) {
	app := newTestApp(t, time.April)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/history?city=Paris&country=FR", nil)
	if code, _ := do(t, app, req); code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/weather/history?city=Paris&from=2024-01-02T00:00:00Z&to=2024-01-01T00:00:00Z", nil)
	if code, _ := do(t, app, req); code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/weather/history?city=Paris&from=1704067200&to=1704153600", nil)
	if code, _ := do(t, app, req); code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, code)
	}
}
