package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/core/usecases"
	"github.com/samirrijal/transporteba/internal/pkg/geospatial"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("39")).Padding(0, 1)
)

func renderLocation(w io.Writer, loc usecases.Located) {
	p := loc.Position
	line := fmt.Sprintf("📍 %.5f, %.5f  (%s", p.Point.Lat, p.Point.Lon, p.Source)
	if p.AccuracyM > 0 {
		line += fmt.Sprintf(", ±%.0f m", p.AccuracyM)
	}
	line += ")"
	fmt.Fprintln(w, boxStyle.Render(line))
	if loc.Notice != "" {
		fmt.Fprintln(w, noticeStyle.Render("⚠ "+loc.Notice))
	}
}

type nearbyRecord struct {
	label string
	km    float64
	ok    bool
}

// nearest orders records by distance from origin; records without
// coordinates go last in their original order.
func nearest(records []domain.Record, origin domain.GeoPoint, n int) []nearbyRecord {
	out := make([]nearbyRecord, 0, len(records))
	for _, r := range records {
		nr := nearbyRecord{label: r.Label()}
		if p, ok := r.Point(); ok {
			nr.km, nr.ok = geospatial.HaversineKm(origin, p), true
		}
		out = append(out, nr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ok != out[j].ok {
			return out[i].ok
		}
		return out[i].km < out[j].km
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Retry hints printed under a failed layer.
const (
	retryNearby = "Reintentá con `transporteba nearby`."
	retryWatch  = "Se reintenta en la próxima actualización."
)

func renderLayer(w io.Writer, res usecases.LayerResult, origin domain.GeoPoint, n int, retry string) {
	fmt.Fprintln(w, titleStyle.Render(res.Layer.Title))
	if res.Err != nil {
		msg := "API falló"
		if res.Envelope != nil && res.Envelope.Error != "" {
			msg = res.Envelope.Error
		}
		fmt.Fprintln(w, errorStyle.Render("  ✗ "+msg))
		if retry != "" {
			fmt.Fprintln(w, dimStyle.Render("    "+retry))
		}
		return
	}

	env := res.Envelope
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("  %d de %d · %s", env.Filtered, env.Total, env.Timestamp)))
	if len(env.Data) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  Sin resultados cerca"))
		return
	}
	for _, r := range nearest(env.Data, origin, n) {
		label := r.label
		if label == "" {
			label = "(sin nombre)"
		}
		if r.ok {
			fmt.Fprintf(w, "  • %s %s\n", label, dimStyle.Render(fmt.Sprintf("%.2f km", r.km)))
		} else {
			fmt.Fprintf(w, "  • %s\n", label)
		}
	}
}

func renderLayers(w io.Writer, prefs domain.LayerPreferences) {
	for _, l := range domain.Layers {
		mark := dimStyle.Render("○")
		if prefs[l.ID] {
			mark = onStyle.Render("●")
		}
		fmt.Fprintf(w, "%s %-11s %s\n", mark, l.ID, dimStyle.Render(l.Title))
	}
}
