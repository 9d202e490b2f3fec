package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/agent-pulse/backend/internal/config"
	"github.com/agent-pulse/backend/internal/mock"
	"github.com/agent-pulse/backend/internal/procwatch"
	"github.com/agent-pulse/backend/internal/registry"
	"github.com/agent-pulse/backend/internal/scanner"
	"github.com/agent-pulse/backend/internal/status"
	"github.com/agent-pulse/backend/internal/watch"
	"github.com/agent-pulse/backend/internal/ws"
)

func main() {
	mockMode := flag.Bool("mock", false, "Generate synthetic agent activity")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	// The broadcaster is the registry's event sink and the registry is
	// the broadcaster's snapshot source. The closure breaks the
	// construction cycle; no events flow until both exist.
	var broadcaster *ws.Broadcaster
	reg := registry.New(status.SinkFunc(func(ev status.Event) {
		broadcaster.Event(ev)
	}), registry.Timings{
		WaitingDebounce: cfg.Watch.WaitingDebounce,
		StallAfter:      cfg.Watch.StallAfter,
		CompletionDelay: cfg.Watch.CompletionDelay,
	})
	broadcaster = ws.NewBroadcaster(reg, cfg.Watch.BroadcastThrottle, cfg.Watch.SnapshotInterval)

	server := ws.NewServer(reg, broadcaster, cfg.Server.AllowedOrigins, cfg.Server.AuthToken)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *mockMode {
		log.Println("Starting in mock mode")
		gen := mock.NewGenerator(reg)
		if err := gen.Start(ctx); err != nil {
			log.Fatalf("Failed to start mock generator: %v", err)
		}
	} else {
		log.Printf("Starting in live mode (log root %s)", cfg.LogRoot())

		sc := scanner.New(reg)
		watcher := watch.New(reg, cfg.Watch.PollInterval)
		watcher.OnDirEvent = sc.Scan
		watcher.Start(ctx)

		ctl := &agentControl{
			logRoot: cfg.LogRoot(),
			dirs:    make(map[string]bool),
			reg:     reg,
			scanner: sc,
			watcher: watcher,
		}
		server.SetControl(ctl)

		go scanLoop(ctx, ctl, cfg.Watch.ScanInterval)
		go probeLoop(ctx, reg, cfg.Watch.ProcessProbeInterval)
	}

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// agentControl is the ws.Control implementation: it binds agent
// registration to the registry, the known-files scanner, and the
// directory watcher.
type agentControl struct {
	mu      sync.Mutex
	dirs    map[string]bool
	logRoot string
	reg     *registry.Registry
	scanner *scanner.Scanner
	watcher *watch.Watcher
}

func (c *agentControl) RegisterAgent(id, provider, workingDir, sessionID string) error {
	dir := scanner.DirFor(c.logRoot, workingDir)

	// Seed the known-files set before anything else so pre-existing
	// session files in this project are never taken for fresh ones.
	c.scanner.Scan(dir)

	path := ""
	resume := false
	if sessionID != "" {
		path = scanner.SessionFilePath(dir, sessionID)
		c.scanner.PreRegister(path)
		// Attaching to a transcript that already exists: tail only new
		// records instead of replaying history.
		if _, err := os.Stat(path); err == nil {
			resume = true
		}
	}

	c.reg.Add(id, provider, path, workingDir, resume)

	c.mu.Lock()
	c.dirs[dir] = true
	c.mu.Unlock()

	c.watcher.WatchDir(dir)
	if path != "" {
		// The file may lag the registration; go look for it shortly.
		c.watcher.PollSoon(id, 250*time.Millisecond)
	}
	return nil
}

func (c *agentControl) RemoveAgent(id string) {
	c.reg.Remove(id)
	if c.scanner.Active() == id {
		c.scanner.SetActive("")
	}
}

func (c *agentControl) SetActiveAgent(id string) {
	c.scanner.SetActive(id)
}

func (c *agentControl) scanAll() {
	c.mu.Lock()
	dirs := make([]string, 0, len(c.dirs))
	for d := range c.dirs {
		dirs = append(dirs, d)
	}
	c.mu.Unlock()

	for _, d := range dirs {
		c.scanner.Scan(d)
	}
}

func scanLoop(ctx context.Context, ctl *agentControl, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ctl.scanAll()
		}
	}
}

func probeLoop(ctx context.Context, reg *registry.Registry, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			activity := procwatch.Probe()
			info := make(map[string]registry.ProcessInfo, len(activity))
			for dir, a := range activity {
				info[dir] = registry.ProcessInfo{PID: a.PID, CPUActive: a.CPUActive}
			}
			reg.SetProcessInfo(info)
		}
	}
}
