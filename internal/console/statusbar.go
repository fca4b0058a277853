package console

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"readsb-core/internal/priority"
)

// Health is the engine-health snapshot the status bar renders,
// assembled by the caller from the table, trace writer, registry and
// stats each render tick.
type Health struct {
	ActiveAircraft int
	BucketCount    int
	TraceSweepDone bool
	RegistryOwned  bool
	LastTickDelay  time.Duration
	Stats          priority.Window
}

// StatusBar renders a single-line engine health summary.
type StatusBar struct {
	x, y, width int
}

// NewStatusBar creates a status bar spanning (x, y, width).
func NewStatusBar(x, y, width int) *StatusBar {
	return &StatusBar{x: x, y: y, width: width}
}

// Draw renders h as a single text row.
func (s *StatusBar) Draw(screen tcell.Screen, h Health) {
	text := fmt.Sprintf(
		" active=%d buckets=%d trace=%s registry=%s tick=%s msgs/min=%d ",
		h.ActiveAircraft, h.BucketCount, boolWord(h.TraceSweepDone, "ready", "pending"),
		boolWord(h.RegistryOwned, "owned", "none"), h.LastTickDelay.Round(time.Millisecond),
		h.Stats.Min1.Messages,
	)

	style := StyleOK
	if h.LastTickDelay > 150*time.Millisecond {
		style = StyleWarn
	}

	for i := 0; i < s.width; i++ {
		ch := rune(' ')
		if i < len(text) {
			ch = rune(text[i])
		}
		screen.SetContent(s.x+i, s.y, ch, nil, style)
	}
}

func boolWord(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

// UpdateDimensions relocates/resizes the status bar.
func (s *StatusBar) UpdateDimensions(x, y, width int) {
	s.x, s.y, s.width = x, y, width
}
