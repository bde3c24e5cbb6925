// Command mesh-ctl is a tool for poking at a signal mesh from the
// outside: sending one-shot signals, probing nodes, browsing mDNS, and
// analyzing event log files recorded by mesh-node.
//
// Usage:
//
//	mesh-ctl <command> [flags]
//
// Commands:
//
//	send     Send a one-shot signal to a node
//	dock     Send a dock request and wait for the node's verdict
//	discover Browse mDNS for mesh nodes
//	view     View an event log file in human-readable format
//	export   Export an event log file to JSONL
//	stats    Show statistics about an event log file
//
// Examples:
//
//	# Send a heartbeat with a custom payload
//	mesh-ctl send -to 192.168.1.10:9000 -signal HEARTBEAT -payload '{"sender":"ctl"}'
//
//	# Check whether a node admits us
//	mesh-ctl dock -to 192.168.1.10:9000
//
//	# Find mesh nodes on the local network
//	mesh-ctl discover -timeout 5s
//
//	# Inspect a recorded event log
//	mesh-ctl view -category admission node.slog
//	mesh-ctl stats node.slog
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/signalmesh/signalmesh-go/cmd/mesh-ctl/commands"
	"github.com/signalmesh/signalmesh-go/pkg/discovery"
	"github.com/signalmesh/signalmesh-go/pkg/version"
	"github.com/signalmesh/signalmesh-go/pkg/wire"
)

const usage = `mesh-ctl - Signal Mesh Control Tool

Usage:
  mesh-ctl <command> [flags]

Commands:
  send     Send a one-shot signal to a node
  dock     Send a dock request and wait for the node's verdict
  discover Browse mDNS for mesh nodes
  view     View an event log file in human-readable format
  export   Export an event log file to JSONL
  stats    Show statistics about an event log file

Use "mesh-ctl <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "send":
		runSend(args)
	case "dock":
		runDock(args)
	case "discover":
		runDiscover(args)
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runSend(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	to := fs.String("to", "", "Target node address (host:port)")
	signalName := fs.String("signal", "HEARTBEAT", "Signal name")
	payloadJSON := fs.String("payload", "", "Payload as inline JSON")
	count := fs.Int("count", 1, "Number of copies to send")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *to == "" {
		fmt.Fprintln(os.Stderr, "Error: target address (-to) required")
		os.Exit(1)
	}

	sigType, payload, err := resolveSignal(*signalName, *payloadJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	data, err := wire.Encode(sigType, payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	conn, err := net.Dial("udp", *to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	for i := 0; i < *count; i++ {
		if _, err := conn.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("Sent %d x %s (%d bytes) to %s\n", *count, sigType, len(data), *to)
}

func runDock(args []string) {
	fs := flag.NewFlagSet("dock", flag.ExitOnError)
	to := fs.String("to", "", "Target node address (host:port)")
	name := fs.String("name", "mesh-ctl", "Sender name announced in the request")
	timeout := fs.Duration("timeout", 5*time.Second, "How long to wait for a reply")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *to == "" {
		fmt.Fprintln(os.Stderr, "Error: target address (-to) required")
		os.Exit(1)
	}

	verdict, err := probeDock(*to, *name, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(verdict)
}

// probeDock sends a DOCK_REQUEST and classifies the first reply.
func probeDock(addr, name string, timeout time.Duration) (string, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	data, err := wire.Encode(wire.SignalDockRequest, map[string]any{"sender": name})
	if err != nil {
		return "", err
	}
	if _, err := conn.Write(data); err != nil {
		return "", err
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	buf := make([]byte, 64*1024)
	n, err := conn.Read(buf)
	if err != nil {
		return "", fmt.Errorf("no reply within %v (node down, or request not admitted): %w", timeout, err)
	}

	sig := wire.DecodeAny(buf[:n])
	if sig == nil {
		return "", fmt.Errorf("unrecognized reply (%d bytes)", n)
	}
	switch sig.Type {
	case wire.SignalDockApprove:
		return fmt.Sprintf("APPROVED by %s%s", replySender(sig), releaseNote(sig)), nil
	case wire.SignalDockReject:
		return fmt.Sprintf("REJECTED by %s", replySender(sig)), nil
	default:
		return fmt.Sprintf("unexpected reply: %s", sig.Type), nil
	}
}

// releaseNote renders the node's announced release and whether it is
// compatible with ours.
func releaseNote(sig *wire.Signal) string {
	raw, ok := sig.Payload["release"].(string)
	if !ok || raw == "" {
		return ""
	}
	remote, err := version.Parse(raw)
	if err != nil {
		return fmt.Sprintf(" (release %q unparseable)", raw)
	}
	if !version.Current().Compatible(remote) {
		return fmt.Sprintf(" (release %s, INCOMPATIBLE with %s)", remote, version.Release)
	}
	return fmt.Sprintf(" (release %s)", remote)
}

func replySender(sig *wire.Signal) string {
	if s, ok := sig.Payload["sender"].(string); ok && s != "" {
		return s
	}
	return "unnamed node"
}

func runDiscover(args []string) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	timeout := fs.Duration("timeout", discovery.BrowseTimeout, "How long to browse")
	iface := fs.String("iface", "", "Restrict browsing to one network interface")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	browser := discovery.NewBrowser(discovery.BrowserConfig{
		BrowseTimeout: *timeout,
		Interface:     *iface,
	})

	fmt.Printf("Browsing for mesh nodes (%v)...\n", *timeout)
	nodes, err := browser.FindAll(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(nodes) == 0 {
		fmt.Println("No mesh nodes found")
		return
	}

	fmt.Printf("Found %d node(s):\n", len(nodes))
	for _, node := range nodes {
		fmt.Printf("  %s (%s)\n", node.Info.Name, node.Info.NodeID)
		fmt.Printf("      Host: %s  Port: %d  Protocol: v%d\n",
			node.Host, node.Port, node.Info.Version)
		for _, addr := range node.Addresses {
			fmt.Printf("      Address: %s\n", addr)
		}
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `mesh-ctl view - View an event log file in human-readable format

Usage:
  mesh-ctl view [flags] <file.slog>

Flags:
`)
		fs.PrintDefaults()
	}

	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (signal, peer, admission, error)")
	peer := fs.String("peer", "", "Filter by peer address")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: event log file path required")
		fs.Usage()
		os.Exit(1)
	}

	filter, err := commands.BuildFilter(*direction, *category, *peer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := commands.RunView(fs.Arg(0), filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: event log file path required")
		os.Exit(1)
	}

	if err := commands.RunExport(fs.Arg(0), *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: event log file path required")
		os.Exit(1)
	}

	if err := commands.RunStats(fs.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveSignal turns a signal name and optional JSON string into a
// typed signal.
func resolveSignal(name, payloadJSON string) (wire.SignalType, map[string]any, error) {
	upper := strings.ToUpper(name)
	sigType := wire.TypeForName(upper)
	if sigType == wire.SignalError && upper != "ERROR" {
		return 0, nil, fmt.Errorf("unknown signal name: %s", name)
	}

	var payload map[string]any
	if payloadJSON != "" {
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return 0, nil, fmt.Errorf("invalid payload JSON: %w", err)
		}
	}
	return sigType, payload, nil
}
