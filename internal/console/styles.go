// Package console is the operational terminal dashboard: a tcell UI
// over the aircraft table and engine health (active count, bucket
// count, whether the first trace sweep is done, whether a registry is
// configured, messages in the last minute).
package console

import "github.com/gdamore/tcell/v2"

var (
	StyleLabel        = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	StyleListItem     = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	StyleListSelected = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	StyleOK           = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	StyleWarn         = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	StyleStale        = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
)
