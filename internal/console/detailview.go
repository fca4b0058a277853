package console

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"readsb-core/internal/engine"
)

// DetailView shows the full field set for one selected aircraft,
// sourced from an *engine.Aircraft's Validity-gated fields.
type DetailView struct {
	aircraft      *engine.Aircraft
	x, y          int
	width, height int
}

// NewDetailView creates a detail view occupying the rectangle
// (x, y, width, height).
func NewDetailView(x, y, width, height int) *DetailView {
	return &DetailView{x: x, y: y, width: width, height: height}
}

// SetAircraft selects which aircraft the view displays.
func (d *DetailView) SetAircraft(a *engine.Aircraft) {
	d.aircraft = a
}

// Draw renders the detail view to screen at now.
func (d *DetailView) Draw(screen tcell.Screen, now time.Time) {
	for row := d.y + 1; row < d.y+d.height-1; row++ {
		for col := d.x + 1; col < d.x+d.width-1; col++ {
			screen.SetContent(col, row, ' ', nil, tcell.StyleDefault)
		}
	}
	d.drawBorder(screen)

	title := "Aircraft Detail"
	titleX := d.x + (d.width-len(title))/2
	for i, ch := range title {
		screen.SetContent(titleX+i, d.y, ch, nil, StyleLabel)
	}

	if d.aircraft == nil {
		d.drawLine(screen, 1, "no aircraft selected")
		return
	}

	a := d.aircraft
	lines := []string{
		fmt.Sprintf("hex       %s  (%s)", a.HexString(), a.AddrType),
		fmt.Sprintf("flight    %s", fieldOr(a.CallsignValidity, now, a.Callsign)),
		fmt.Sprintf("squawk    %s", a.Squawk),
		fmt.Sprintf("category  %02X", byte(a.Category)),
	}
	if lat, lon, ok := a.PublishedPosition(now, engine.DefaultReliabilityConfig()); ok {
		lines = append(lines, fmt.Sprintf("position  %.4f, %.4f (nic=%d rc=%d)", lat, lon, a.NIC, a.Rc))
	} else if a.PositionKnown() {
		lines = append(lines, "position  unreliable")
	} else {
		lines = append(lines, "position  none")
	}
	lines = append(lines,
		fmt.Sprintf("baro alt  %s ft", fieldOrInt(a.BaroAltValidity, now, a.BaroAlt)),
		fmt.Sprintf("geom alt  %s ft", fieldOrInt(a.GeomAltValidity, now, a.GeomAlt)),
		fmt.Sprintf("gs/track  %s kt / %.0f deg", fieldOrFloat(a.SpeedValidity, now, a.GS), a.EffectiveTrack(now)),
		fmt.Sprintf("vrate     %s ft/min", fieldOrInt(a.RateValidity, now, a.BaroRate)),
		fmt.Sprintf("signal    %.1f dBFS (%d samples)", a.Signal.Average(), a.Signal.Count()),
		fmt.Sprintf("messages  %d", a.Messages),
		fmt.Sprintf("seen      %.0fs ago", now.Sub(a.Seen).Seconds()),
		fmt.Sprintf("registry  %s / %s", a.Registration, a.TypeCode),
	)

	for i, line := range lines {
		d.drawLine(screen, i+1, line)
	}
}

func fieldOr(v engine.Validity, now time.Time, s string) string {
	if !v.Valid(now) {
		return "-"
	}
	return s
}

func fieldOrInt(v engine.Validity, now time.Time, n int) string {
	if !v.Valid(now) {
		return "-"
	}
	return fmt.Sprintf("%d", n)
}

func fieldOrFloat(v engine.Validity, now time.Time, f float64) string {
	if !v.Valid(now) {
		return "-"
	}
	return fmt.Sprintf("%.0f", f)
}

func (d *DetailView) drawLine(screen tcell.Screen, row int, text string) {
	x, y := d.x+1, d.y+row
	maxLen := d.width - 2
	for j := 0; j < maxLen; j++ {
		ch := rune(' ')
		if j < len(text) {
			ch = rune(text[j])
		}
		screen.SetContent(x+j, y, ch, nil, StyleListItem)
	}
}

func (d *DetailView) drawBorder(screen tcell.Screen) {
	style := StyleLabel
	screen.SetContent(d.x, d.y, '┌', nil, style)
	screen.SetContent(d.x+d.width-1, d.y, '┐', nil, style)
	screen.SetContent(d.x, d.y+d.height-1, '└', nil, style)
	screen.SetContent(d.x+d.width-1, d.y+d.height-1, '┘', nil, style)
	for i := 1; i < d.width-1; i++ {
		screen.SetContent(d.x+i, d.y, '─', nil, style)
		screen.SetContent(d.x+i, d.y+d.height-1, '─', nil, style)
	}
	for i := 1; i < d.height-1; i++ {
		screen.SetContent(d.x, d.y+i, '│', nil, style)
		screen.SetContent(d.x+d.width-1, d.y+i, '│', nil, style)
	}
}

// UpdateDimensions relocates/resizes the view.
func (d *DetailView) UpdateDimensions(x, y, width, height int) {
	d.x, d.y, d.width, d.height = x, y, width, height
}
