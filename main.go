package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"readsb-core/internal/console"
	"readsb-core/internal/control"
	"readsb-core/internal/debug"
	"readsb-core/internal/engine"
	"readsb-core/internal/ingest"
	"readsb-core/internal/priority"
	"readsb-core/internal/registry"
	"readsb-core/internal/state"
	"readsb-core/internal/trace"
)

func main() {
	help := flag.Bool("h", false, "Show help message")
	networkAddr := flag.String("network", "", "Connect to a remote SBS source (e.g., 192.168.1.100:30003)")
	localBinary := flag.String("local-bin", "", "Spawn a local SBS-producing binary (e.g., dump1090) instead of dialing -network")
	registryPath := flag.String("db", "", "Path to the aircraft registry file (semicolon-delimited, optionally gzipped)")
	registryURL := flag.String("db-url", "", "Remote URL to mirror the registry file from")
	jsonDir := flag.String("json-dir", "./data/json", "Directory for trace files and control-file triggers")
	stateDir := flag.String("state-dir", "./data/state", "Directory for persisted state blobs and control files")
	tracePool := flag.Int("trace-pool", 2, "Trace writer worker count")
	traceDeadline := flag.Duration("trace-timelimit", 200*time.Millisecond, "Per-task trace writer deadline")
	headless := flag.Bool("headless", false, "Run without the terminal dashboard")
	debugLog := flag.String("d", "", "Debug log file (e.g., debug.log)")
	flag.Parse()

	if *help {
		fmt.Println("readsb-core - aircraft-state engine and priority/upkeep orchestrator")
		fmt.Println("\nUsage: readsb-core [options]")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *debugLog != "" {
		logFile, err := os.Create(*debugLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to create debug log: %v\n", err)
		} else {
			defer logFile.Close()
			debug.SetOutput(logFile)
			debug.Log("readsb-core debug log started")
		}
	}

	table := engine.NewTable(12, 10, engine.DefaultReliabilityConfig())
	stats := &priority.Stats{}
	barrier := &priority.Barrier{}

	var db *registry.Database
	var regSource *registry.Source
	if *registryPath != "" {
		if *registryURL != "" {
			regSource = registry.NewSource(*registryPath, *registryURL)
			db = regSource.Database()
		} else {
			db = registry.NewDatabase(*registryPath)
		}
	}

	now := time.Now()
	coord := priority.NewCoordinator(table, db, barrier, stats, now)

	loader := state.NewLoader(table, *stateDir+"/replaceState")
	coord.State = loader

	exit := make(chan struct{})
	var exitOnce sync.Once
	requestExit := func() { exitOnce.Do(func() { close(exit) }) }
	coord.OnFatal = func(reason string) {
		fmt.Fprintf(os.Stderr, "fatal: %s\n", reason)
		requestExit()
	}

	writer := trace.NewWriter(table, trace.Config{
		JSONDir:      *jsonDir,
		PoolSize:     *tracePool,
		TickPeriod:   time.Second,
		TaskDeadline: *traceDeadline,
	})
	coord.OnStateLoaded = func(loadedAt time.Time) {
		writer.Inhibit(loadedAt.Add(state.InhibitDuration))
	}

	watcher := control.NewWatcher(table, control.Dirs{
		WriteState:   []string{*jsonDir + "/getState", *stateDir},
		ReplaceState: *stateDir + "/replaceState",
		SetGain:      *stateDir,
		StateOut:     *stateDir,
	}, func(line string) {
		debug.Log("control: setGain line: %s", line)
	})

	var feed *ingest.Feed
	var err error
	switch {
	case *networkAddr != "":
		fmt.Printf("Connecting to SBS source at %s...\n", *networkAddr)
		feed, err = ingest.NewNetworkFeed(table, stats, db, barrier, *networkAddr)
	case *localBinary != "":
		fmt.Printf("Starting local SBS source %s...\n", *localBinary)
		feed, err = ingest.NewLocalFeed(table, stats, db, barrier, *localBinary)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start ingest feed: %v\n", err)
		os.Exit(2)
	}
	if feed != nil {
		feed.Start()
		defer feed.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	go runUpkeep(db, regSource, coord, writer, watcher, sigCh, exit, requestExit)

	if *headless {
		<-exit
		fmt.Println("\nGoodbye!")
		return
	}

	registryOwned := func() bool { return *registryPath != "" }
	app, err := console.NewApp(table, console.HealthFromEngine(table, stats, writer.FirstSweepDone, registryOwned))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create dashboard: %v\n", err)
		os.Exit(2)
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(os.Stderr, "\npanic: %v\n", r)
			}
		}()
		if err := app.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}()

	fmt.Println("\nGoodbye!")
}

// runUpkeep is the upkeep thread: it drives the priority
// coordinator's scheduling loop, the trace writer's per-tick sweep and
// the control-file poll, until a signal or a fatal jitter event closes
// exit.
func runUpkeep(
	db *registry.Database,
	regSource *registry.Source,
	coord *priority.Coordinator,
	writer *trace.Writer,
	watcher *control.Watcher,
	sigCh <-chan os.Signal,
	exit <-chan struct{},
	requestExit func(),
) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var lastRegistryCheck time.Time

	for {
		select {
		case <-exit:
			return
		case <-sigCh:
			requestExit()
			return
		case scheduled := <-ticker.C:
			now := time.Now()
			coord.Tick(scheduled, now)
			writer.Tick(now)
			watcher.PollWriteState()
			watcher.PollSetGain()

			if db != nil && now.Sub(lastRegistryCheck) >= registry.PollInterval() {
				lastRegistryCheck = now
				if regSource != nil {
					if err := regSource.RefreshRemote(); err != nil {
						debug.Log("registry: remote refresh failed: %v", err)
					}
				}
				if changed, err := db.CheckAndParse(); err != nil {
					debug.Log("registry: check failed: %v", err)
				} else if changed {
					debug.Log("registry: new generation parsed, pending swap")
				}
			}
		}
	}
}
