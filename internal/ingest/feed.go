package ingest

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os/exec"
	"sync"
	"time"

	"readsb-core/internal/debug"
	"readsb-core/internal/engine"
	"readsb-core/internal/priority"
	"readsb-core/internal/registry"
)

// Feed connects to an SBS/BaseStation source (a local dump1090-family
// process or a remote network feed) and drives engine.Table updates
// from it. It writes straight into the aircraft table instead of
// handing parsed structs to a channel consumer.
type Feed struct {
	conn       io.ReadCloser
	isLocalCLI bool
	cmd        *exec.Cmd

	table    *engine.Table
	stats    *priority.Stats
	registry *registry.Database
	barrier  *priority.Barrier

	errChan   chan error
	done      chan struct{}
	closeOnce sync.Once
}

// NewLocalFeed spawns a local dump1090-family binary with networked
// SBS output enabled and connects to it. db may be nil.
func NewLocalFeed(table *engine.Table, stats *priority.Stats, db *registry.Database, barrier *priority.Barrier, binary string) (*Feed, error) {
	cmd := exec.Command(binary, "--net", "--quiet")

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("ingest: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ingest: start %s: %w", binary, err)
	}

	var conn net.Conn
	const maxRetries = 10
	for i := 0; i < maxRetries; i++ {
		time.Sleep(500 * time.Millisecond)
		conn, err = net.Dial("tcp", "localhost:30003")
		if err == nil {
			break
		}
		if i == maxRetries-1 {
			buf := make([]byte, 1024)
			n, _ := stderrPipe.Read(buf)
			cmd.Process.Kill()
			return nil, fmt.Errorf("ingest: connect to %s SBS port after %d attempts: %w (stderr: %s)",
				binary, maxRetries, err, buf[:n])
		}
	}

	return &Feed{
		conn: conn, isLocalCLI: true, cmd: cmd,
		table: table, stats: stats, registry: db, barrier: barrier,
		errChan: make(chan error, 10), done: make(chan struct{}),
	}, nil
}

// NewNetworkFeed connects to a remote SBS source at addr
// ("host:port"). db may be nil.
func NewNetworkFeed(table *engine.Table, stats *priority.Stats, db *registry.Database, barrier *priority.Barrier, addr string) (*Feed, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ingest: dial %s: %w", addr, err)
	}
	return &Feed{
		conn: conn, table: table, stats: stats, registry: db, barrier: barrier,
		errChan: make(chan error, 10), done: make(chan struct{}),
	}, nil
}

// Start begins reading and applying messages in a background
// goroutine.
func (f *Feed) Start() {
	go f.readLoop()
}

// Errors returns a channel carrying the read loop's read error, if
// the stream ends with one. Malformed lines are logged and skipped,
// not sent here.
func (f *Feed) Errors() <-chan error {
	return f.errChan
}

// Close stops the feed and, for a locally spawned process, kills it.
func (f *Feed) Close() error {
	f.closeOnce.Do(func() {
		if f.conn != nil {
			f.conn.Close()
		}
		if f.isLocalCLI && f.cmd != nil && f.cmd.Process != nil {
			f.cmd.Process.Kill()
		}
		<-f.done
		close(f.errChan)
	})
	return nil
}

func (f *Feed) readLoop() {
	defer close(f.done)

	scanner := bufio.NewScanner(f.conn)
	for scanner.Scan() {
		line := scanner.Text()
		msg, err := parseSBS(line)
		if err != nil {
			debug.Log("ingest: skipping malformed line: %v", err)
			continue
		}
		if msg == nil {
			continue
		}

		// The decode lock keeps record mutation out of the upkeep
		// thread's barrier window, so a reap never races a field write.
		now := time.Now()
		if f.barrier != nil {
			f.barrier.Decode.Lock()
		}
		Apply(f.table, f.registry, msg, now)
		if f.barrier != nil {
			f.barrier.Decode.Unlock()
		}
		if f.stats != nil {
			f.stats.Add(priority.Counters{Messages: 1, ModeSMessages: 1})
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case f.errChan <- fmt.Errorf("ingest: read loop: %w", err):
		case <-f.done:
		}
	}
}
