package console

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"readsb-core/internal/engine"
	"readsb-core/internal/priority"
)

// ViewMode selects which secondary panel is shown.
type ViewMode int

const (
	ViewModeList ViewMode = iota
	ViewModeDetail
)

// HealthSource supplies the live Health snapshot each render tick.
type HealthSource func(now time.Time) Health

// App is the dashboard's tcell main loop: a screen/ticker/event-poll
// structure driven off an engine.Table, with a status bar showing
// engine health.
type App struct {
	screen tcell.Screen
	table  *engine.Table
	health HealthSource

	list   *ListView
	detail *DetailView
	status *StatusBar
	view   ViewMode

	quit   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the dashboard app over table, using health to pull
// an engine-health snapshot on each render tick.
func NewApp(table *engine.Table, health HealthSource) (*App, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("console: create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("console: init screen: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault)
	screen.Clear()

	width, height := screen.Size()
	listHeight := height - 1
	list := NewListView(0, 0, width/2, listHeight)
	detail := NewDetailView(width/2, 0, width-width/2, listHeight)
	status := NewStatusBar(0, height-1, width)

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		screen: screen, table: table, health: health,
		list: list, detail: detail, status: status,
		view: ViewModeList, quit: make(chan struct{}),
		ctx: ctx, cancel: cancel,
	}, nil
}

// Run starts the dashboard's render loop; it returns when the user
// quits or ctx (passed implicitly through the app's own cancel) ends.
func (a *App) Run() error {
	defer a.cleanup()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-a.quit:
			return nil
		case <-a.ctx.Done():
			return nil
		case <-ticker.C:
			now := time.Now()
			a.update(now)
			a.render(now)
		default:
			if a.screen.HasPendingEvent() {
				ev := a.screen.PollEvent()
				if !a.handleEvent(ev) {
					return nil
				}
			} else {
				time.Sleep(10 * time.Millisecond)
			}
		}
	}
}

func (a *App) update(now time.Time) {
	a.list.Update(a.table.ActiveSnapshot())
	if a.view == ViewModeDetail {
		a.detail.SetAircraft(a.list.GetSelected())
	}
}

func (a *App) render(now time.Time) {
	a.screen.Clear()
	a.list.Draw(a.screen, now)
	if a.view == ViewModeDetail {
		a.detail.SetAircraft(a.list.GetSelected())
		a.detail.Draw(a.screen, now)
	}
	if a.health != nil {
		a.status.Draw(a.screen, a.health(now))
	}
	a.screen.Show()
}

func (a *App) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape:
			if a.view == ViewModeDetail {
				a.view = ViewModeList
			} else {
				close(a.quit)
				return false
			}
		case tcell.KeyEnter:
			a.view = ViewModeDetail
			a.detail.SetAircraft(a.list.GetSelected())
		case tcell.KeyUp:
			a.list.SelectPrev()
		case tcell.KeyDown:
			a.list.SelectNext()
		case tcell.KeyRune:
			if ev.Rune() == 'q' || ev.Rune() == 'Q' {
				close(a.quit)
				return false
			}
		}
	case *tcell.EventResize:
		a.handleResize()
	}
	return true
}

func (a *App) handleResize() {
	a.screen.Sync()
	width, height := a.screen.Size()
	listHeight := height - 1
	a.list.UpdateDimensions(0, 0, width/2, listHeight)
	a.detail.UpdateDimensions(width/2, 0, width-width/2, listHeight)
	a.status.UpdateDimensions(0, height-1, width)
}

func (a *App) cleanup() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.screen != nil {
		a.screen.Fini()
	}
}

// HealthFromEngine builds a HealthSource over the table, stats, and
// optional trace-sweep / registry-ownership probes. It leaves
// LastTickDelay at zero, so the status bar's tick field reads 0s.
func HealthFromEngine(table *engine.Table, stats *priority.Stats, traceDone, registryOwned func() bool) HealthSource {
	return func(now time.Time) Health {
		return Health{
			ActiveAircraft: table.ActiveLen(),
			BucketCount:    table.BucketCount(),
			TraceSweepDone: traceDone != nil && traceDone(),
			RegistryOwned:  registryOwned != nil && registryOwned(),
			Stats:          stats.Snapshot(),
		}
	}
}
