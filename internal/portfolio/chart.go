// Package portfolio manages a session's strategy portfolio and lays its
// projects out on the impact/complexity chart.
package portfolio

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/TobiSchelling/cubo/internal/database"
)

// Scale limits shared by impact and complexity.
const (
	MinScore = 1
	MaxScore = 10
)

// Category is the strategic horizon of a project.
type Category string

const (
	CategoryCore             Category = "Core"
	CategoryAdjacent         Category = "Adjacent"
	CategoryTransformational Category = "Transformational"
)

// Categories lists the known categories in legend order.
var Categories = []Category{CategoryCore, CategoryAdjacent, CategoryTransformational}

// UnknownColor is used for projects whose category is not recognised.
const UnknownColor = "#6b7280"

var categoryColors = map[Category]string{
	CategoryCore:             "#3b82f6",
	CategoryAdjacent:         "#8b5cf6",
	CategoryTransformational: "#ec4899",
}

// ParseCategory accepts English and Portuguese names, case-insensitively.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "core":
		return CategoryCore, true
	case "adjacent", "adjacente":
		return CategoryAdjacent, true
	case "transformational", "transformacional":
		return CategoryTransformational, true
	}
	return "", false
}

// Color returns the marker color for c.
func (c Category) Color() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return UnknownColor
}

// Label returns the Portuguese display name.
func (c Category) Label() string {
	switch c {
	case CategoryAdjacent:
		return "Adjacente"
	case CategoryTransformational:
		return "Transformacional"
	}
	return string(c)
}

// Layout describes the drawing area in SVG units. Y grows downward.
type Layout struct {
	Width  float64
	Height float64
	Margin float64
}

// DefaultLayout is a 100x100 canvas with a 10 unit margin on every side.
func DefaultLayout() Layout {
	return Layout{Width: 100, Height: 100, Margin: 10}
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// Bounds is the plot area inside the margins.
func (l Layout) Bounds() Rect {
	return Rect{MinX: l.Margin, MinY: l.Margin, MaxX: l.Width - l.Margin, MaxY: l.Height - l.Margin}
}

// X maps a complexity score to a horizontal coordinate.
func (l Layout) X(complexity float64) float64 {
	b := l.Bounds()
	return b.MinX + (clampScore(complexity)-MinScore)/(MaxScore-MinScore)*(b.MaxX-b.MinX)
}

// Y maps an impact score to a vertical coordinate. Higher impact is higher on
// the chart, so a smaller Y.
func (l Layout) Y(impact float64) float64 {
	b := l.Bounds()
	return b.MaxY - (clampScore(impact)-MinScore)/(MaxScore-MinScore)*(b.MaxY-b.MinY)
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	return math.Max(MinScore, math.Min(MaxScore, v))
}

// Project is the chart's view of a portfolio project.
type Project struct {
	ID         string
	Name       string
	Impact     float64
	Complexity float64
	Category   string
	Selected   bool
}

// FromStored converts stored projects for plotting.
func FromStored(projects []database.StrategyProject) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, Project{
			ID:         p.ID,
			Name:       p.Name,
			Impact:     float64(p.Impact),
			Complexity: float64(p.Complexity),
			Category:   p.Category,
			Selected:   p.Selected,
		})
	}
	return out
}

// Point is a plotted project.
type Point struct {
	ID       string
	Name     string
	X, Y     float64
	Color    string
	Selected bool
	Title    string
}

// Tick is one labelled axis position.
type Tick struct {
	Value int
	Pos   float64
}

// QuadrantLabel is a two-line caption centred in one quadrant.
type QuadrantLabel struct {
	X, Y         float64
	Line1, Line2 string
}

// LegendEntry maps a category to its color.
type LegendEntry struct {
	Label string
	Color string
}

// Chart is a fully laid out scatter plot ready to render.
type Chart struct {
	Layout    Layout
	Bounds    Rect
	Points    []Point
	XTicks    []Tick
	YTicks    []Tick
	Quadrants []QuadrantLabel
	Legend    []LegendEntry
	Radius    float64
}

// Plot lays out projects on l. Scores outside [1,10] are clamped, so every
// point falls inside l.Bounds().
func Plot(projects []Project, l Layout) Chart {
	b := l.Bounds()
	c := Chart{
		Layout: l,
		Bounds: b,
		Points: make([]Point, 0, len(projects)),
		Radius: l.Margin * 0.25,
	}

	for v := MinScore; v <= MaxScore; v++ {
		c.XTicks = append(c.XTicks, Tick{Value: v, Pos: l.X(float64(v))})
		c.YTicks = append(c.YTicks, Tick{Value: v, Pos: l.Y(float64(v))})
	}

	midX := (b.MinX + b.MaxX) / 2
	midY := (b.MinY + b.MaxY) / 2
	left, right := (b.MinX+midX)/2, (midX+b.MaxX)/2
	top, bottom := (b.MinY+midY)/2, (midY+b.MaxY)/2
	c.Quadrants = []QuadrantLabel{
		{X: right, Y: top, Line1: "Alto Impacto", Line2: "Alta Complexidade"},
		{X: left, Y: top, Line1: "Alto Impacto", Line2: "Baixa Complexidade"},
		{X: left, Y: bottom, Line1: "Baixo Impacto", Line2: "Baixa Complexidade"},
		{X: right, Y: bottom, Line1: "Baixo Impacto", Line2: "Alta Complexidade"},
	}

	for _, cat := range Categories {
		c.Legend = append(c.Legend, LegendEntry{Label: cat.Label(), Color: cat.Color()})
	}

	for _, p := range projects {
		color := UnknownColor
		if cat, ok := ParseCategory(p.Category); ok {
			color = cat.Color()
		}
		c.Points = append(c.Points, Point{
			ID:       p.ID,
			Name:     p.Name,
			X:        l.X(p.Complexity),
			Y:        l.Y(p.Impact),
			Color:    color,
			Selected: p.Selected,
			Title: fmt.Sprintf("%s\nImpacto: %s\nComplexidade: %s",
				p.Name, formatScore(p.Impact), formatScore(p.Complexity)),
		})
	}
	return c
}

func formatScore(v float64) string {
	return fmt.Sprintf("%g", clampScore(v))
}

var svgTmpl = template.Must(template.New("chart").Funcs(template.FuncMap{
	"n": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"half": func(v float64) float64 { return v / 2 },
}).Parse(`<svg xmlns="http://www.w3.org/2000/svg" class="portfolio-chart" viewBox="0 0 {{n .Layout.Width}} {{n .Layout.Height}}" role="img" aria-label="Matriz de impacto e complexidade">
<g class="grid" stroke="#e5e7eb" stroke-width="0.2" stroke-dasharray="1,1">
{{- range .XTicks}}{{if gt .Value 1}}
<line x1="{{n .Pos}}" y1="{{n $.Bounds.MinY}}" x2="{{n .Pos}}" y2="{{n $.Bounds.MaxY}}"/>{{end}}{{end}}
{{- range .YTicks}}{{if gt .Value 1}}
<line x1="{{n $.Bounds.MinX}}" y1="{{n .Pos}}" x2="{{n $.Bounds.MaxX}}" y2="{{n .Pos}}"/>{{end}}{{end}}
</g>
<g class="axes" stroke="#374151" stroke-width="0.4">
<line x1="{{n .Bounds.MinX}}" y1="{{n .Bounds.MaxY}}" x2="{{n .Bounds.MaxX}}" y2="{{n .Bounds.MaxY}}"/>
<line x1="{{n .Bounds.MinX}}" y1="{{n .Bounds.MaxY}}" x2="{{n .Bounds.MinX}}" y2="{{n .Bounds.MinY}}"/>
</g>
<g class="ticks" font-size="3" fill="#6b7280" text-anchor="middle">
{{- range .XTicks}}
<text x="{{n .Pos}}" y="{{n $.Bounds.MaxY}}" dy="4">{{.Value}}</text>{{end}}
{{- range .YTicks}}
<text x="{{n $.Bounds.MinX}}" dx="-3" y="{{n .Pos}}" dy="1">{{.Value}}</text>{{end}}
</g>
<g class="labels" font-size="3.5" font-weight="600" fill="#374151" text-anchor="middle">
<text x="{{n (half .Layout.Width)}}" y="{{n .Layout.Height}}" dy="-1">Complexidade</text>
<text x="0" y="0" transform="translate(3 {{n (half .Layout.Height)}}) rotate(-90)">Impacto</text>
</g>
<g class="quadrants" font-size="2.8" fill="#6b7280" text-anchor="middle">
{{- range .Quadrants}}
<text x="{{n .X}}" y="{{n .Y}}">{{.Line1}}<tspan x="{{n .X}}" dy="3.5">{{.Line2}}</tspan></text>{{end}}
</g>
<g class="projects" stroke="#ffffff" stroke-width="0.5">
{{- range .Points}}
<circle cx="{{n .X}}" cy="{{n .Y}}" r="{{n $.Radius}}" fill="{{.Color}}"{{if not .Selected}} fill-opacity="0.4"{{end}}><title>{{.Title}}</title></circle>{{end}}
</g>
</svg>`))

// RenderSVG renders c as an inline SVG document.
func RenderSVG(c Chart) (template.HTML, error) {
	var buf bytes.Buffer
	if err := svgTmpl.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("rendering chart: %w", err)
	}
	return template.HTML(buf.String()), nil
}
