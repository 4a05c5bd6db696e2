package charts

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"bikeshare/pkg/contracts/domain"
)

// Kind names a renderable chart.
type Kind string

const (
	KindHoliday     Kind = "holiday"
	KindWeather     Kind = "weather"
	KindYearly      Kind = "yearly"
	KindMonthly     Kind = "monthly"
	KindTemperature Kind = "temperature"
	KindCondition   Kind = "condition"
)

// noDataSuffix marks the title of a chart drawn from an empty range.
const noDataSuffix = " (no data)"

// ErrUnknownChart is returned for chart names outside Kinds.
var ErrUnknownChart = errors.New("unknown chart")

// Kinds lists every chart the renderer supports.
func Kinds() []Kind {
	return []Kind{KindHoliday, KindWeather, KindYearly, KindMonthly, KindTemperature, KindCondition}
}

// ParseKind matches a chart name case-insensitively.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChart, s)
}

var (
	colorBlue  = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	colorRed   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	colorGreen = color.RGBA{R: 0, G: 128, B: 0, A: 255}
	colorGray  = color.RGBA{R: 128, G: 128, B: 128, A: 255}

	weatherColors = map[domain.WeatherSituation]color.Color{
		domain.WeatherClear:               color.RGBA{R: 135, G: 206, B: 250, A: 255}, // lightskyblue
		domain.WeatherCloudy:              color.RGBA{R: 144, G: 238, B: 144, A: 255}, // lightgreen
		domain.WeatherLightSnowRain:       color.RGBA{R: 255, G: 215, B: 0, A: 255},   // gold
		domain.WeatherHeavyRainIcePallets: color.RGBA{R: 240, G: 128, B: 128, A: 255}, // lightcoral
	}

	conditionColors = map[domain.ConditionOption]color.Color{
		domain.ConditionTemperature: colorBlue,
		domain.ConditionHum:         colorGreen,
		domain.ConditionWindspeed:   colorRed,
	}
)

// withAlpha scales a colour to the given opacity (premultiplied).
func withAlpha(c color.Color, alpha float64) color.Color {
	r, g, b, _ := c.RGBA()
	a := uint8(alpha * 255)
	return color.RGBA{
		R: uint8(float64(r>>8) * alpha),
		G: uint8(float64(g>>8) * alpha),
		B: uint8(float64(b>>8) * alpha),
		A: a,
	}
}

// Renderer draws dashboard charts as PNG images.
type Renderer struct {
	Width  vg.Length
	Height vg.Length
}

// NewRenderer returns a renderer with the dashboard's default canvas size.
func NewRenderer() *Renderer {
	return &Renderer{Width: 8 * vg.Inch, Height: 6 * vg.Inch}
}

type bar struct {
	label string
	value float64
	color color.Color
}

// barPlot draws one bar per entry with its value printed above it.
func barPlot(title, xLabel, yLabel string, bars []bar) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Y.Min = 0

	names := make([]string, len(bars))
	labels := plotter.XYLabels{}
	for i, b := range bars {
		names[i] = b.label

		chart, err := plotter.NewBarChart(plotter.Values{b.value}, vg.Points(40))
		if err != nil {
			return nil, fmt.Errorf("bar %q: %w", b.label, err)
		}
		chart.XMin = float64(i)
		chart.Color = b.color
		chart.LineStyle.Width = vg.Length(0)
		p.Add(chart)

		labels.XYs = append(labels.XYs, plotter.XY{X: float64(i), Y: b.value})
		labels.Labels = append(labels.Labels, strconv.FormatFloat(b.value, 'f', -1, 64))
	}
	nominalX(p, names)

	if len(bars) > 0 {
		valueLabels, err := plotter.NewLabels(labels)
		if err != nil {
			return nil, err
		}
		for i := range valueLabels.TextStyle {
			valueLabels.TextStyle[i].XAlign = draw.XCenter
			valueLabels.TextStyle[i].YAlign = draw.YBottom
		}
		p.Add(valueLabels)
	}
	return p, nil
}

// nominalX labels the X axis with names. gonum's NominalX needs at least one
// name, so an empty range gets a plain axis and a marked title instead.
func nominalX(p *plot.Plot, names []string) {
	if len(names) == 0 {
		p.Title.Text += noDataSuffix
		p.HideX()
		return
	}
	p.NominalX(names...)
}

// Holiday renders the holiday-effect bar chart.
func (r *Renderer) Holiday(w io.Writer, rows []domain.HolidayEffectRow) error {
	palette := []color.Color{colorBlue, colorRed}
	yLabel := "Total Bike Usage"
	bars := make([]bar, 0, len(rows))
	for _, row := range rows {
		if row.Mode == domain.AggregateMean {
			yLabel = "Average Bike Usage"
		}
		bars = append(bars, bar{label: row.Label(), value: row.Cnt, color: palette[row.Holiday%2]})
	}

	p, err := barPlot("Impact of Holiday on Bike Usage", "Day Type", yLabel, bars)
	if err != nil {
		return err
	}
	return r.save(p, w)
}

// Weather renders total rentals per weather category.
func (r *Renderer) Weather(w io.Writer, rows []domain.WeatherEffectRow) error {
	bars := make([]bar, 0, len(rows))
	for _, row := range rows {
		c, ok := weatherColors[row.Weathersit]
		if !ok {
			c = colorGray
		}
		bars = append(bars, bar{label: row.Weathersit.String(), value: float64(row.Cnt), color: c})
	}

	p, err := barPlot("Total Bike Rentals by Weathersit", "Weathersit", "Total Rentals", bars)
	if err != nil {
		return err
	}
	return r.save(p, w)
}

// Yearly renders the yearly trend as a line with point markers.
func (r *Renderer) Yearly(w io.Writer, rows []domain.YearlyTrendRow) error {
	p := plot.New()
	p.Title.Text = "Yearly Trend of Bike Rentals"
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Total Bike Rentals"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(rows))
	names := make([]string, len(rows))
	for i, row := range rows {
		pts[i] = plotter.XY{X: float64(i), Y: float64(row.TotalRentals)}
		names[i] = strconv.Itoa(row.Year)
	}

	if len(pts) > 0 {
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return err
		}
		line.Color = colorBlue
		line.Width = vg.Points(2)
		points.GlyphStyle.Shape = draw.CircleGlyph{}
		points.GlyphStyle.Color = colorBlue
		p.Add(line, points)
	}
	nominalX(p, names)

	return r.save(p, w)
}

// Monthly renders registered, casual and total rentals per month.
func (r *Renderer) Monthly(w io.Writer, rows []domain.MonthlyRentalsRow) error {
	p := plot.New()
	p.Title.Text = "Monthly Bike Rentals"
	p.X.Label.Text = "Month"
	p.Y.Label.Text = "Rentals"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	series := []struct {
		name  string
		color color.Color
		value func(domain.MonthlyRentalsRow) int64
	}{
		{"Registered", colorBlue, func(m domain.MonthlyRentalsRow) int64 { return m.TotalRegistered }},
		{"Casual", colorRed, func(m domain.MonthlyRentalsRow) int64 { return m.TotalCasual }},
		{"Total", colorGreen, func(m domain.MonthlyRentalsRow) int64 { return m.TotalRentals }},
	}

	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.Month
	}

	if len(rows) > 0 {
		for _, s := range series {
			pts := make(plotter.XYs, len(rows))
			for i, row := range rows {
				pts[i] = plotter.XY{X: float64(i), Y: float64(s.value(row))}
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return err
			}
			line.Color = s.color
			line.Width = vg.Points(1.5)
			p.Add(line)
			p.Legend.Add(s.name, line)
		}
	}
	nominalX(p, names)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = draw.XRight

	return r.save(p, w)
}

// Temperature renders total cnt per temperature value.
func (r *Renderer) Temperature(w io.Writer, rows []domain.TemperatureEffectRow, units domain.Units) error {
	points := make([]domain.ScatterPoint, len(rows))
	for i, row := range rows {
		points[i] = domain.ScatterPoint{X: row.Temp, Cnt: row.Cnt}
	}
	xLabel := "Temperature (Normalized)"
	if units == domain.UnitsPhysical {
		xLabel = "Temperature (°C)"
	}
	return r.scatter(w, "Total Rentals by Temperature", xLabel, "Total Rentals", points, colorBlue)
}

// Condition renders the view chosen in the condition selector.
func (r *Renderer) Condition(w io.Writer, view domain.ConditionView) error {
	if view.Option == domain.ConditionWeather {
		return r.Weather(w, view.Weather)
	}
	c, ok := conditionColors[view.Option]
	if !ok {
		c = colorGray
	}
	title := fmt.Sprintf("%s vs Bike Usage", strings.SplitN(view.XLabel, " (", 2)[0])
	return r.scatter(w, title, view.XLabel, "Count of Bike Users", view.Points, c)
}

func (r *Renderer) scatter(w io.Writer, title, xLabel, yLabel string, points []domain.ScatterPoint, c color.Color) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	if len(points) > 0 {
		pts := make(plotter.XYs, len(points))
		for i, pt := range points {
			pts[i] = plotter.XY{X: pt.X, Y: float64(pt.Cnt)}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = withAlpha(c, 0.7)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
	}

	return r.save(p, w)
}

func (r *Renderer) save(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(r.Width, r.Height, "png")
	if err != nil {
		return fmt.Errorf("create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
