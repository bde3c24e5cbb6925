// Command mesh-node runs a signal mesh node.
//
// The node binds a UDP port, docks with its seed peers, exchanges
// heartbeats, and dispatches admitted signals to its handlers. With
// discovery enabled it additionally announces itself over mDNS and
// docks with any mesh node it finds.
//
// Usage:
//
//	mesh-node [flags]
//
// Flags:
//
//	-config string   Configuration file path (YAML)
//	-name string     Node name (overrides config)
//	-listen string   UDP listen address (overrides config)
//	-seed value      Seed peer address, repeatable
//	-accept-all      Admit every signal from every peer
//	-discover        Enable mDNS discovery
//	-interactive     Enable interactive command mode
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-log-file string   Record mesh events to a CBOR event file
//
// Examples:
//
//	# Start a node on the default port, open admission
//	mesh-node -name alpha -accept-all
//
//	# Join an existing mesh through a seed
//	mesh-node -name beta -listen :9001 -seed 192.168.1.10:9000
//
//	# Run from a config file with an interactive console
//	mesh-node -config /etc/sigmesh/node.yaml -interactive
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/signalmesh/signalmesh-go/cmd/mesh-node/interactive"
	"github.com/signalmesh/signalmesh-go/pkg/config"
	"github.com/signalmesh/signalmesh-go/pkg/discovery"
	"github.com/signalmesh/signalmesh-go/pkg/health"
	eventlog "github.com/signalmesh/signalmesh-go/pkg/log"
	"github.com/signalmesh/signalmesh-go/pkg/mesh"
	"github.com/signalmesh/signalmesh-go/pkg/peers"
	"github.com/signalmesh/signalmesh-go/pkg/router"
	"github.com/signalmesh/signalmesh-go/pkg/tumbler"
	"github.com/signalmesh/signalmesh-go/pkg/version"
	"github.com/signalmesh/signalmesh-go/pkg/wire"
)

// stringList collects a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return fmt.Sprint([]string(*l)) }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var (
	configFile  string
	nodeName    string
	listenAddr  string
	seeds       stringList
	acceptAll   bool
	discover    bool
	interactiveMode bool
	logLevel    string
	logFile     string
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&nodeName, "name", "", "Node name (overrides config)")
	flag.StringVar(&listenAddr, "listen", "", "UDP listen address (overrides config)")
	flag.Var(&seeds, "seed", "Seed peer address, repeatable")
	flag.BoolVar(&acceptAll, "accept-all", false, "Admit every signal from every peer")
	flag.BoolVar(&discover, "discover", false, "Enable mDNS discovery")
	flag.BoolVar(&interactiveMode, "interactive", false, "Enable interactive command mode")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&logFile, "log-file", "", "Record mesh events to a CBOR event file")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	setupLogging(cfg.Log.Level)

	log.Println("Signal Mesh Node")
	log.Println("================")
	log.Printf("Release: %s (protocol v%d)", version.Release, wire.ProtocolVersion)
	log.Printf("Node name: %s", cfg.NodeName)
	log.Printf("Listen address: %s", cfg.ListenAddress)
	log.Printf("Heartbeat interval: %v", cfg.HeartbeatInterval.Std())
	log.Printf("Peer timeout: %v", cfg.PeerTimeout.Std())

	logger, closeLogger, err := buildEventLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to open event log: %v", err)
	}
	defer closeLogger()

	tum := buildTumbler(cfg.Admission)
	rtr := router.New()

	table := peers.NewTable(cfg.PeerTimeout.Std())
	for _, addr := range cfg.ExpectedPeers {
		table.Expect(addr)
	}

	liveness := health.NewLivenessView()
	liveness.Attach(rtr)

	transport, err := mesh.New(mesh.Config{
		NodeName:          cfg.NodeName,
		ListenAddress:     cfg.ListenAddress,
		HeartbeatInterval: cfg.HeartbeatInterval.Std(),
		SweepInterval:     cfg.SweepInterval.Std(),
		Seeds:             cfg.Seeds,
		Logger:            logger,
	}, tum, rtr, table)
	if err != nil {
		log.Fatalf("Failed to create mesh transport: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := transport.Start(ctx); err != nil {
		log.Fatalf("Failed to start mesh transport: %v", err)
	}
	log.Printf("Mesh transport started on %s", transport.LocalAddr())

	var advertiser *discovery.Advertiser
	if cfg.Discovery.Enabled {
		advertiser = startDiscovery(ctx, cfg, transport, table)
	}

	if len(cfg.ExpectedPeers) > 0 {
		go runCoverageLoop(ctx, table, cfg.ExpectedPeers)
	}

	// Run interactive mode or wait for signal.
	if interactiveMode {
		console, err := interactive.New(transport, tum, table, liveness, cfg.ExpectedPeers)
		if err != nil {
			log.Fatalf("Failed to create interactive console: %v", err)
		}
		// Redirect log output through readline to avoid interfering with input
		log.SetOutput(console.Stdout())
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
		// Cancelled by the interactive quit command.
	}

	log.Println("Shutting down...")

	if advertiser != nil {
		advertiser.Stop()
	}
	transport.Undock()
	transport.Stop()

	log.Println("Goodbye!")
}

// loadConfig merges the config file (or defaults) with flag overrides.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if nodeName != "" {
		cfg.NodeName = nodeName
	}
	if listenAddr != "" {
		cfg.ListenAddress = listenAddr
	}
	if len(seeds) > 0 {
		cfg.Seeds = append(cfg.Seeds, seeds...)
	}
	if acceptAll {
		cfg.Admission.AcceptAll = true
	}
	if discover {
		cfg.Discovery.Enabled = true
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if cfg.NodeName == "" {
		host, _ := os.Hostname()
		cfg.NodeName = host
	}

	return cfg, cfg.Validate()
}

func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}
}

// buildEventLogger assembles the mesh event logger: slog output at debug
// level, plus an optional CBOR event file.
func buildEventLogger(cfg config.LogConfig) (eventlog.Logger, func(), error) {
	loggers := []eventlog.Logger{}

	if cfg.Level == "debug" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		loggers = append(loggers, eventlog.NewSlogAdapter(slog.New(handler)))
	}

	var fileLogger *eventlog.FileLogger
	if cfg.File != "" {
		fl, err := eventlog.NewFileLogger(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		fileLogger = fl
		loggers = append(loggers, fl)
		log.Printf("Recording mesh events to %s", cfg.File)
	}

	closeFn := func() {
		if fileLogger != nil {
			_ = fileLogger.Close()
		}
	}

	switch len(loggers) {
	case 0:
		return eventlog.NoopLogger{}, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return eventlog.NewMultiLogger(loggers...), closeFn, nil
	}
}

func buildTumbler(cfg config.AdmissionConfig) *tumbler.Tumbler {
	var opts []tumbler.Option
	if cfg.AcceptAll {
		opts = append(opts, tumbler.WithAcceptAll())
	}
	if cfg.OpenWhenEmpty {
		opts = append(opts, tumbler.WithOpenWhenEmpty())
	}

	tum := tumbler.New(opts...)
	for _, name := range cfg.Signals {
		tum.AddSignal(name)
	}
	for _, addr := range cfg.Peers {
		tum.AddPeer(addr)
	}
	return tum
}

// startDiscovery announces this node over mDNS and docks with any node
// the browser finds.
func startDiscovery(ctx context.Context, cfg config.Config, transport *mesh.Transport, table *peers.Table) *discovery.Advertiser {
	port := listenPort(transport.LocalAddr())
	fingerprint := discovery.NodeFingerprint(transport.NodeID())

	advertiser := discovery.NewAdvertiser(discovery.AdvertiserConfig{
		Interface: cfg.Discovery.Interface,
	})
	err := advertiser.Advertise(&discovery.NodeInfo{
		Name:    cfg.NodeName,
		NodeID:  fingerprint,
		Port:    port,
		Version: wire.ProtocolVersion,
	})
	if err != nil {
		log.Printf("Warning: mDNS advertisement failed: %v", err)
	} else {
		log.Printf("Advertising %s on mDNS (%s)", cfg.NodeName, fingerprint)
	}

	browser := discovery.NewBrowser(discovery.BrowserConfig{
		Interface: cfg.Discovery.Interface,
	})
	nodes, err := browser.Browse(ctx)
	if err != nil {
		log.Printf("Warning: mDNS browsing failed: %v", err)
		return advertiser
	}

	go func() {
		for node := range nodes {
			if node.Info.NodeID == fingerprint {
				continue // our own announcement
			}
			for _, ip := range node.Addresses {
				addr := net.JoinHostPort(ip, strconv.Itoa(int(node.Port)))
				if _, known := table.Get(addr); known {
					continue
				}
				log.Printf("Discovered node %s at %s, docking", node.Info.Name, addr)
				if err := transport.Dock(addr); err != nil {
					log.Printf("Warning: dock with %s failed: %v", addr, err)
				}
			}
		}
	}()

	return advertiser
}

// runCoverageLoop periodically reports roster coverage.
func runCoverageLoop(ctx context.Context, table *peers.Table, roster []string) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := health.Coverage(table, roster)
			if report.Covered() {
				log.Printf("[COVERAGE] All %d expected peers active", report.Expected)
			} else {
				log.Printf("[COVERAGE] %d/%d expected peers active, missing: %v",
					len(report.Present), report.Expected, report.Missing)
			}
		}
	}
}

func listenPort(addr net.Addr) uint16 {
	udp, ok := addr.(*net.UDPAddr)
	if !ok {
		return 0
	}
	return uint16(udp.Port)
}
