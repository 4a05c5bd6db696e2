package dataprocessing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"

	apperrors "bikeshare/internal/errors"
	"bikeshare/pkg/contracts/domain"
)

// Canonical column names of the input file.
const (
	ColDate       = "date"
	ColYear       = "year"
	ColWeathersit = "weathersit"
	ColHoliday    = "holiday"
	ColTemp       = "temp"
	ColHum        = "hum"
	ColWindspeed  = "windspeed"
	ColRegistered = "registered"
	ColCasual     = "casual"
	ColCnt        = "cnt"
)

// RequiredColumns lists every column the aggregators depend on.
var RequiredColumns = []string{
	ColDate, ColYear, ColWeathersit, ColHoliday, ColTemp, ColHum, ColWindspeed, ColRegistered, ColCasual, ColCnt,
}

var columnAliases = map[string]string{
	"date":       ColDate,
	"dteday":     ColDate,
	"year":       ColYear,
	"yr":         ColYear,
	"weathersit": ColWeathersit,
	"weather":    ColWeathersit,
	"holiday":    ColHoliday,
	"temp":       ColTemp,
	"hum":        ColHum,
	"humidity":   ColHum,
	"windspeed":  ColWindspeed,
	"registered": ColRegistered,
	"casual":     ColCasual,
	"cnt":        ColCnt,
	"count":      ColCnt,
	"total":      ColCnt,
}

// dateLayouts are tried in order when LoaderConfig.DateLayout is empty.
// Day-first files need DateLayout: the month-first layout reads
// "03/04/2011" as March 4.
var dateLayouts = []string{
	domain.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
}

// measureRules bound the measurement columns per unit system.
var measureRules = map[domain.Units]map[string]string{
	domain.UnitsNormalized: {
		ColTemp:      "gte=0,lte=1",
		ColHum:       "gte=0,lte=1",
		ColWindspeed: "gte=0,lte=1",
	},
	domain.UnitsPhysical: {
		ColHum:       "gte=0,lte=100",
		ColWindspeed: "gte=0",
	},
}

// LoaderConfig tunes the loader.
type LoaderConfig struct {
	// Units of the measurement columns in the file.
	Units domain.Units
	// BaseYear is added to year values read from a "yr" column, which
	// encodes years as offsets (0 = 2011).
	BaseYear int
	// Sheet selects the XLSX sheet; empty means the first sheet.
	Sheet string
	// DateLayout, when set, is the only layout accepted for the date
	// column, e.g. "02/01/2006" for day-first files.
	DateLayout string
}

// Loader reads rental files into Tables.
type Loader struct {
	logger   *slog.Logger
	validate *validator.Validate
	config   LoaderConfig
}

// NewLoader creates a loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger, config LoaderConfig) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Units == "" {
		config.Units = domain.UnitsNormalized
	}
	if config.BaseYear == 0 {
		config.BaseYear = 2011
	}
	return &Loader{
		logger:   logger.With(slog.String("component", "loader")),
		validate: validator.New(),
		config:   config,
	}
}

// LoadFile reads a .csv or .xlsx file.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Table, error) {
	start := time.Now()

	var (
		table *Table
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, apperrors.NewStorageError("open data file", err).WithContext("path", path)
		}
		defer f.Close()
		table, err = l.ReadCSV(ctx, f)
	case ".xlsx", ".xlsm":
		table, err = l.readXLSX(ctx, path)
	default:
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("%s: %v", path, ErrUnsupportedFormat))
	}
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to load data file",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, err
	}

	bounds := table.DateBounds()
	l.logger.InfoContext(ctx, "table loaded",
		slog.String("path", path),
		slog.Int("rows", table.Len()),
		slog.String("min_date", bounds.Min),
		slog.String("max_date", bounds.Max),
		slog.Any("years", bounds.Years),
		slog.String("units", string(table.Units())),
		slog.Duration("duration", time.Since(start)))
	return table, nil
}

// ReadCSV parses CSV content with a header line.
func (l *Loader) ReadCSV(ctx context.Context, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewSchemaError("empty input, header expected", err)
		}
		return nil, apperrors.NewParsingError("read header", err)
	}
	dec, err := l.newRowDecoder(header)
	if err != nil {
		return nil, err
	}

	records := make([]domain.RentalRecord, 0, 1024)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("read row %d", line), err)
		}
		if blank(fields) {
			continue
		}
		rec, err := dec.decode(line, fields)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return NewTable(records, l.config.Units), nil
}

func (l *Loader) readXLSX(ctx context.Context, path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError("open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	sheet := l.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewSchemaError("workbook has no sheets", nil).WithContext("path", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError("read sheet "+sheet, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewSchemaError("empty sheet, header expected", nil).WithContext("sheet", sheet)
	}

	dec, err := l.newRowDecoder(rows[0])
	if err != nil {
		return nil, err
	}
	records := make([]domain.RentalRecord, 0, len(rows)-1)
	for i, fields := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if blank(fields) {
			continue
		}
		rec, err := dec.decode(i+2, fields)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return NewTable(records, l.config.Units), nil
}

type rowDecoder struct {
	loader       *Loader
	columnMap    map[string]int
	yearIsOffset bool
}

func (l *Loader) newRowDecoder(header []string) (*rowDecoder, error) {
	columnMap := make(map[string]int, len(RequiredColumns))
	yearIsOffset := false
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		canonical, ok := columnAliases[name]
		if !ok {
			continue
		}
		if _, dup := columnMap[canonical]; dup {
			continue
		}
		columnMap[canonical] = i
		if canonical == ColYear && name == "yr" {
			yearIsOffset = true
		}
	}
	for _, col := range RequiredColumns {
		if _, ok := columnMap[col]; !ok {
			missing := &MissingColumnError{Column: col, Header: header}
			return nil, apperrors.NewSchemaError("missing column "+col, missing).WithContext("column", col)
		}
	}
	return &rowDecoder{loader: l, columnMap: columnMap, yearIsOffset: yearIsOffset}, nil
}

func (d *rowDecoder) cell(fields []string, col string) string {
	i := d.columnMap[col]
	if i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func (d *rowDecoder) decode(line int, fields []string) (domain.RentalRecord, error) {
	var (
		rec domain.RentalRecord
		err error
	)
	fail := func(col string, cause error) (domain.RentalRecord, error) {
		pe := &ParseError{Row: line, Column: col, Value: d.cell(fields, col), Err: cause}
		return domain.RentalRecord{}, apperrors.NewParsingError(pe.Error(), pe).
			WithContext("row", line).
			WithContext("column", col)
	}

	if rec.Date, err = d.parseDate(d.cell(fields, ColDate)); err != nil {
		return fail(ColDate, err)
	}
	if rec.Year, err = strconv.Atoi(d.cell(fields, ColYear)); err != nil {
		return fail(ColYear, err)
	}
	if d.yearIsOffset && rec.Year < 100 {
		rec.Year += d.loader.config.BaseYear
	}
	if rec.Weathersit, err = domain.ParseWeatherSituation(d.cell(fields, ColWeathersit)); err != nil {
		return fail(ColWeathersit, err)
	}
	if rec.Holiday, err = parseFlag(d.cell(fields, ColHoliday)); err != nil {
		return fail(ColHoliday, err)
	}
	for _, m := range []struct {
		col string
		dst *float64
	}{{ColTemp, &rec.Temp}, {ColHum, &rec.Hum}, {ColWindspeed, &rec.Windspeed}} {
		if *m.dst, err = d.parseMeasure(m.col, d.cell(fields, m.col)); err != nil {
			return fail(m.col, err)
		}
	}
	if rec.Registered, err = parseCount(d.cell(fields, ColRegistered)); err != nil {
		return fail(ColRegistered, err)
	}
	if rec.Casual, err = parseCount(d.cell(fields, ColCasual)); err != nil {
		return fail(ColCasual, err)
	}
	if rec.Cnt, err = parseCount(d.cell(fields, ColCnt)); err != nil {
		return fail(ColCnt, err)
	}

	if err := d.loader.validate.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fail(strings.ToLower(verrs[0].Field()), fmt.Errorf("failed %s validation", verrs[0].Tag()))
		}
		return fail("record", err)
	}
	return rec, nil
}

// parseMeasure reads a finite float and checks it against the range of the
// loader's unit system.
func (d *rowDecoder) parseMeasure(col, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotFinite
	}
	units := d.loader.config.Units
	if rule, ok := measureRules[units][col]; ok {
		if err := d.loader.validate.Var(v, rule); err != nil {
			return 0, fmt.Errorf("outside the %s range (%s)", units, rule)
		}
	}
	return v, nil
}

func (d *rowDecoder) parseDate(s string) (time.Time, error) {
	layouts := dateLayouts
	if d.loader.config.DateLayout != "" {
		layouts = []string{d.loader.config.DateLayout}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.TruncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date")
}

func parseFlag(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return 0, err
	}
	if b {
		return 1, nil
	}
	return 0, nil
}

// parseCount accepts integral values written as floats ("985.0").
func parseCount(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("not an integer")
	}
	return int64(f), nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
