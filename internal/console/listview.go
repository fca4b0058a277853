package console

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"readsb-core/internal/engine"
)

// ListView is a scrollable list of active aircraft, drawing
// *engine.Aircraft rows from Table.ActiveSnapshot.
type ListView struct {
	aircraft      []*engine.Aircraft
	selectedIndex int
	scrollOffset  int
	maxVisible    int
	x, y          int
	width, height int
}

// NewListView creates a list view occupying the rectangle
// (x, y, width, height).
func NewListView(x, y, width, height int) *ListView {
	maxVisible := height - 2
	if maxVisible < 1 {
		maxVisible = 1
	}
	return &ListView{maxVisible: maxVisible, x: x, y: y, width: width, height: height}
}

// Update refreshes the displayed aircraft list.
func (l *ListView) Update(aircraft []*engine.Aircraft) {
	l.aircraft = aircraft
	if l.selectedIndex >= len(l.aircraft) {
		l.selectedIndex = len(l.aircraft) - 1
	}
	if l.selectedIndex < 0 {
		l.selectedIndex = 0
	}
	l.adjustScroll()
}

// SelectNext moves the selection down one row.
func (l *ListView) SelectNext() {
	if l.selectedIndex < len(l.aircraft)-1 {
		l.selectedIndex++
		l.adjustScroll()
	}
}

// SelectPrev moves the selection up one row.
func (l *ListView) SelectPrev() {
	if l.selectedIndex > 0 {
		l.selectedIndex--
		l.adjustScroll()
	}
}

func (l *ListView) adjustScroll() {
	if l.selectedIndex >= l.scrollOffset+l.maxVisible {
		l.scrollOffset = l.selectedIndex - l.maxVisible + 1
	}
	if l.selectedIndex < l.scrollOffset {
		l.scrollOffset = l.selectedIndex
	}
	if l.scrollOffset < 0 {
		l.scrollOffset = 0
	}
}

// GetSelected returns the currently selected aircraft, or nil.
func (l *ListView) GetSelected() *engine.Aircraft {
	if l.selectedIndex >= 0 && l.selectedIndex < len(l.aircraft) {
		return l.aircraft[l.selectedIndex]
	}
	return nil
}

func rowText(a *engine.Aircraft, now time.Time) string {
	alt, spd := "---", "---"
	if a.BaroAltValidity.Valid(now) {
		alt = fmt.Sprintf("%3d", a.FlightLevel())
	}
	if a.SpeedValidity.Valid(now) {
		spd = fmt.Sprintf("%3d", int(a.GS))
	}
	return fmt.Sprintf("%-10s FL%s %skt", a.DisplayName(), alt, spd)
}

// Draw renders the list view to screen.
func (l *ListView) Draw(screen tcell.Screen, now time.Time) {
	for row := l.y + 1; row < l.y+l.height-1; row++ {
		for col := l.x + 1; col < l.x+l.width-1; col++ {
			screen.SetContent(col, row, ' ', nil, tcell.StyleDefault)
		}
	}
	l.drawBorder(screen)

	title := "Aircraft"
	titleX := l.x + (l.width-len(title))/2
	for i, ch := range title {
		screen.SetContent(titleX+i, l.y, ch, nil, StyleLabel)
	}

	visibleCount := l.maxVisible
	if n := len(l.aircraft) - l.scrollOffset; n < visibleCount {
		visibleCount = n
	}
	for i := 0; i < visibleCount; i++ {
		idx := l.scrollOffset + i
		if idx >= len(l.aircraft) {
			break
		}
		a := l.aircraft[idx]
		text := rowText(a, now)

		style := StyleListItem
		if a.IsStale(now, 60*time.Second) {
			style = StyleStale
		}
		if idx == l.selectedIndex {
			style = StyleListSelected
		}

		x, y := l.x+1, l.y+i+1
		maxLen := l.width - 2
		for j := 0; j < maxLen; j++ {
			ch := rune(' ')
			if j < len(text) {
				ch = rune(text[j])
			}
			screen.SetContent(x+j, y, ch, nil, style)
		}
	}
}

func (l *ListView) drawBorder(screen tcell.Screen) {
	style := StyleLabel
	screen.SetContent(l.x, l.y, '┌', nil, style)
	screen.SetContent(l.x+l.width-1, l.y, '┐', nil, style)
	screen.SetContent(l.x, l.y+l.height-1, '└', nil, style)
	screen.SetContent(l.x+l.width-1, l.y+l.height-1, '┘', nil, style)
	for i := 1; i < l.width-1; i++ {
		screen.SetContent(l.x+i, l.y, '─', nil, style)
		screen.SetContent(l.x+i, l.y+l.height-1, '─', nil, style)
	}
	for i := 1; i < l.height-1; i++ {
		screen.SetContent(l.x, l.y+i, '│', nil, style)
		screen.SetContent(l.x+l.width-1, l.y+i, '│', nil, style)
	}
}

// UpdateDimensions relocates/resizes the view.
func (l *ListView) UpdateDimensions(x, y, width, height int) {
	l.x, l.y, l.width, l.height = x, y, width, height
	l.maxVisible = height - 2
	if l.maxVisible < 1 {
		l.maxVisible = 1
	}
	l.adjustScroll()
}
