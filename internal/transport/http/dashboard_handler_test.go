package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bikeshare/internal/charts"
	apierrors "bikeshare/internal/errors"
	"bikeshare/internal/exporter"
	"bikeshare/internal/services"
	"bikeshare/internal/shared/testutil"
	"bikeshare/pkg/contracts/domain"
)

// MockDashboardService is a mock implementation of DashboardServiceInterface
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) DateBounds(ctx context.Context) domain.DateBounds {
	return m.Called().Get(0).(domain.DateBounds)
}

func (m *MockDashboardService) HolidayEffect(ctx context.Context, q services.DashboardQuery) ([]domain.HolidayEffectRow, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HolidayEffectRow), args.Error(1)
}

func (m *MockDashboardService) WeatherEffect(ctx context.Context, q services.DashboardQuery) ([]domain.WeatherEffectRow, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WeatherEffectRow), args.Error(1)
}

func (m *MockDashboardService) YearlyTrend(ctx context.Context, q services.DashboardQuery) (services.YearlyTrend, error) {
	args := m.Called(q)
	return args.Get(0).(services.YearlyTrend), args.Error(1)
}

func (m *MockDashboardService) MonthlyRentals(ctx context.Context, q services.DashboardQuery) ([]domain.MonthlyRentalsRow, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MonthlyRentalsRow), args.Error(1)
}

func (m *MockDashboardService) TemperatureEffect(ctx context.Context, q services.DashboardQuery) ([]domain.TemperatureEffectRow, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TemperatureEffectRow), args.Error(1)
}

func (m *MockDashboardService) Condition(ctx context.Context, q services.DashboardQuery) (domain.ConditionView, error) {
	args := m.Called(q)
	return args.Get(0).(domain.ConditionView), args.Error(1)
}

func (m *MockDashboardService) Integrity(ctx context.Context, q services.DashboardQuery) ([]domain.RiderTotalsViolation, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RiderTotalsViolation), args.Error(1)
}

func (m *MockDashboardService) Snapshot(ctx context.Context, q services.DashboardQuery) (domain.DashboardSnapshot, error) {
	args := m.Called(q)
	return args.Get(0).(domain.DashboardSnapshot), args.Error(1)
}

func (m *MockDashboardService) Export(ctx context.Context, name string, format exporter.Format, q services.DashboardQuery) ([]byte, error) {
	args := m.Called(name, format, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDashboardService) RenderChart(ctx context.Context, kind charts.Kind, q services.DashboardQuery) ([]byte, error) {
	args := m.Called(kind, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func newTestRouter(t *testing.T, svc *MockDashboardService) chi.Router {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.Mount("/api/dashboard", NewDashboardHandler(svc, logger, errorHandler).Routes())
	return r
}

func serve(r http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func queryFor(start, end string, mode domain.AggregationMode) interface{} {
	return mock.MatchedBy(func(q services.DashboardQuery) bool {
		if q.Mode != mode {
			return false
		}
		match := func(got interface{ Format(string) string }, want string) bool {
			return got.Format(domain.DateLayout) == want
		}
		if (q.Start == nil) != (start == "") || (q.End == nil) != (end == "") {
			return false
		}
		if q.Start != nil && !match(q.Start, start) {
			return false
		}
		if q.End != nil && !match(q.End, end) {
			return false
		}
		return true
	})
}

func TestDashboardHandler_GetHolidayEffect(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockDashboardService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "january sum",
			query: "?start=2011-01-01&end=2011-01-31",
			setupMock: func(m *MockDashboardService) {
				m.On("HolidayEffect", queryFor("2011-01-01", "2011-01-31", "")).Return([]domain.HolidayEffectRow{
					{Holiday: 0, Cnt: 100, Mode: domain.AggregateSum, Days: 1},
					{Holiday: 1, Cnt: 50, Mode: domain.AggregateSum, Days: 1},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"count":2,"data":[{"holiday":0,"cnt":100,"mode":"sum","days":1},{"holiday":1,"cnt":50,"mode":"sum","days":1}],"status":"success"}`,
		},
		{
			name:  "mode is case insensitive",
			query: "?mode=MEAN",
			setupMock: func(m *MockDashboardService) {
				m.On("HolidayEffect", queryFor("", "", domain.AggregateMean)).Return([]domain.HolidayEffectRow{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"count":0`,
		},
		{
			name:           "malformed start date",
			query:          "?start=01/01/2011",
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error_code":"INVALID_DATE"`,
		},
		{
			name:           "impossible end date",
			query:          "?end=2011-02-30",
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"field":"end","message":"must be a YYYY-MM-DD date"}`,
		},
		{
			name:           "unknown mode",
			query:          "?mode=median",
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `mode must be one of: sum, mean`,
		},
		{
			name:           "inverted range",
			query:          "?start=2011-02-01&end=2011-01-01",
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error_code":"INVALID_RANGE"`,
		},
		{
			name:  "range error from the service",
			query: "?start=2011-01-01",
			setupMock: func(m *MockDashboardService) {
				m.On("HolidayEffect", mock.Anything).Return(nil,
					apierrors.NewRangeError("start date 2011-01-01 is after end date 2010-12-31", nil))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `/errors/dashboard/invalid-range`,
		},
		{
			name:  "unexpected failure",
			query: "",
			setupMock: func(m *MockDashboardService) {
				m.On("HolidayEffect", mock.Anything).Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"Internal Server Error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDashboardService)
			tt.setupMock(mockService)

			rec := serve(newTestRouter(t, mockService), "/api/dashboard/holiday"+tt.query)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_ValidationSkipsService(t *testing.T) {
	mockService := new(MockDashboardService)
	r := newTestRouter(t, mockService)

	for _, target := range []string{
		"/api/dashboard/weather?end=2011-13-01",
		"/api/dashboard/monthly?year=abc",
		"/api/dashboard/monthly?year=1800",
		"/api/dashboard/temperature?units=kelvin",
		"/api/dashboard/condition?option=pressure",
		"/api/dashboard/export/holiday?format=pdf",
	} {
		t.Run(target, func(t *testing.T) {
			rec := serve(r, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"status":400`)
		})
	}

	mockService.AssertNotCalled(t, "WeatherEffect", mock.Anything)
	mockService.AssertNotCalled(t, "MonthlyRentals", mock.Anything)
	mockService.AssertNotCalled(t, "TemperatureEffect", mock.Anything)
	mockService.AssertNotCalled(t, "Condition", mock.Anything)
	mockService.AssertNotCalled(t, "Export", mock.Anything, mock.Anything, mock.Anything)
}

func TestDashboardHandler_GetRange(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("DateBounds").Return(domain.DateBounds{Min: "2011-01-01", Max: "2012-12-31", Rows: 731, Years: []int{2011, 2012}})

	rec := serve(newTestRouter(t, mockService), "/api/dashboard/range")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","data":{"min":"2011-01-01","max":"2012-12-31","rows":731,"years":[2011,2012]}}`, rec.Body.String())
}

func TestDashboardHandler_GetOptions(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("DateBounds").Return(domain.DateBounds{Min: "2011-01-01", Max: "2011-01-31", Rows: 31})

	rec := serve(newTestRouter(t, mockService), "/api/dashboard/options")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Modes      []string `json:"modes"`
			Conditions []string `json:"conditions"`
			Tables     []string `json:"tables"`
			Charts     []string `json:"charts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"sum", "mean"}, body.Data.Modes)
	assert.Equal(t, []string{"Weather", "Temperature", "Hum", "Windspeed"}, body.Data.Conditions)
	assert.Equal(t, exporter.TableNames(), body.Data.Tables)
	assert.Len(t, body.Data.Charts, len(charts.Kinds()))
}

func TestDashboardHandler_GetYearlyTrend(t *testing.T) {
	mockService := new(MockDashboardService)
	rows := []domain.YearlyTrendRow{{Year: 2011, TotalRentals: 350}}
	mockService.On("YearlyTrend", mock.Anything).Return(services.YearlyTrend{
		Rows:       rows,
		Highlights: &domain.YearlyHighlights{Lowest: rows[0], Highest: rows[0]},
	}, nil)

	rec := serve(newTestRouter(t, mockService), "/api/dashboard/yearly")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
	assert.Contains(t, rec.Body.String(), `{"year":2011,"total_rentals":350}`)
}

func TestDashboardHandler_GetMonthlyRentals_Year(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("MonthlyRentals", mock.MatchedBy(func(q services.DashboardQuery) bool {
		return q.Year == 2012
	})).Return([]domain.MonthlyRentalsRow{{Month: "2012-01", Year: 2012, TotalRentals: 10}}, nil)

	rec := serve(newTestRouter(t, mockService), "/api/dashboard/monthly?year=2012")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"month":"2012-01"`)
	mockService.AssertExpectations(t)
}

func TestDashboardHandler_GetCondition(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("Condition", mock.MatchedBy(func(q services.DashboardQuery) bool {
		return q.Option == domain.ConditionHum
	})).Return(domain.ConditionView{
		Option: domain.ConditionHum,
		XLabel: "Humidity (%)",
		Points: []domain.ScatterPoint{{X: 50, Cnt: 100}, {X: 60, Cnt: 50}},
	}, nil)

	rec := serve(newTestRouter(t, mockService), "/api/dashboard/condition?option=hum")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
	assert.Contains(t, rec.Body.String(), `"option":"Hum"`)
	mockService.AssertExpectations(t)
}

func TestDashboardHandler_GetCondition_Units(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("Condition", mock.MatchedBy(func(q services.DashboardQuery) bool {
		return q.Option == domain.ConditionTemperature && q.Units == domain.UnitsNormalized
	})).Return(domain.ConditionView{
		Option: domain.ConditionTemperature,
		XLabel: "Temperature (Normalized)",
		Points: []domain.ScatterPoint{{X: 0.34, Cnt: 985}},
	}, nil)

	rec := serve(newTestRouter(t, mockService), "/api/dashboard/condition?option=temperature&units=Normalized")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Temperature (Normalized)"`)
	mockService.AssertExpectations(t)
}

func TestDashboardHandler_GetTemperatureEffect_UnitsMismatch(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("TemperatureEffect", mock.MatchedBy(func(q services.DashboardQuery) bool {
		return q.Units == domain.UnitsNormalized
	})).Return(nil, apierrors.NewAppValidationError("table is in physical units, normalized requested"))

	rec := serve(newTestRouter(t, mockService), "/api/dashboard/temperature?units=normalized")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `/errors/validation`)
}

func TestDashboardHandler_Export(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		format   exporter.Format
		payload  []byte
		filename string
	}{
		{"csv default", "", exporter.FormatCSV, []byte("holiday,label,cnt\n"), `attachment; filename="holiday.csv"`},
		{"xlsx", "?format=XLSX", exporter.FormatXLSX, []byte("PK\x03\x04"), `attachment; filename="holiday.xlsx"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDashboardService)
			mockService.On("Export", "holiday", tt.format, mock.Anything).Return(tt.payload, nil)

			rec := serve(newTestRouter(t, mockService), "/api/dashboard/export/holiday"+tt.query)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.format.ContentType(), rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.filename, rec.Header().Get("Content-Disposition"))
			assert.Equal(t, tt.payload, rec.Body.Bytes())
			mockService.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_Export_UnknownTable(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("Export", "pressure", exporter.FormatCSV, mock.Anything).
		Return(nil, apierrors.NewNotFoundError("table pressure"))

	rec := serve(newTestRouter(t, mockService), "/api/dashboard/export/pressure")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `/errors/not-found`)
}

func TestDashboardHandler_RenderChart(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		mockService := new(MockDashboardService)
		png := []byte("\x89PNG\r\n\x1a\n")
		mockService.On("RenderChart", charts.KindWeather, mock.Anything).Return(png, nil)

		rec := serve(newTestRouter(t, mockService), "/api/dashboard/charts/weather.png")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, png, rec.Body.Bytes())
	})

	t.Run("unknown kind", func(t *testing.T) {
		mockService := new(MockDashboardService)

		rec := serve(newTestRouter(t, mockService), "/api/dashboard/charts/pie")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "RenderChart", mock.Anything, mock.Anything)
	})
}

func TestDashboardHandler_GetSnapshot(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("Snapshot", mock.Anything).Return(domain.DashboardSnapshot{
		Rows:    2,
		Holiday: []domain.HolidayEffectRow{{Holiday: 0, Cnt: 100, Mode: domain.AggregateSum, Days: 1}},
	}, nil)

	rec := serve(newTestRouter(t, mockService), "/api/dashboard/snapshot?start=2011-01-01&end=2011-01-31")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
	assert.Contains(t, rec.Body.String(), `"holiday":[{"holiday":0`)
}
