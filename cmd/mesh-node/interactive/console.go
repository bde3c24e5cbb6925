// Package interactive provides the interactive command-line interface
// for the mesh node.
package interactive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/signalmesh/signalmesh-go/pkg/health"
	"github.com/signalmesh/signalmesh-go/pkg/mesh"
	"github.com/signalmesh/signalmesh-go/pkg/peers"
	"github.com/signalmesh/signalmesh-go/pkg/tumbler"
	"github.com/signalmesh/signalmesh-go/pkg/wire"
)

// Console handles interactive mode for mesh-node.
type Console struct {
	transport *mesh.Transport
	tumbler   *tumbler.Tumbler
	table     *peers.Table
	liveness  *health.LivenessView
	roster    []string
	rl        *readline.Instance
}

// New creates a new interactive console handler.
func New(transport *mesh.Transport, tum *tumbler.Tumbler, table *peers.Table, liveness *health.LivenessView, roster []string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "mesh> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{
		transport: transport,
		tumbler:   tum,
		table:     table,
		liveness:  liveness,
		roster:    roster,
		rl:        rl,
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline
// input. Use this for log output to avoid interfering with the prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "peers", "list", "ls":
			c.cmdPeers()

		case "dock":
			c.cmdDock(args)

		case "send":
			c.cmdSend(args)

		case "broadcast", "bc":
			c.cmdBroadcast(args)

		case "admit":
			c.cmdAdmit(args)

		case "beats", "liveness":
			c.cmdBeats()

		case "coverage":
			c.cmdCoverage()

		case "stats", "status":
			c.cmdStats()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Mesh Node Commands:
  Membership:
    peers                         - List known peers
    dock <addr>                   - Dock with a peer
    coverage                      - Compare active peers against the roster

  Signals:
    send <addr> <signal> [json]   - Send a signal to one peer
    broadcast <signal> [json]     - Send a signal to all active peers
    beats                         - Show per-sender heartbeat liveness

  Admission:
    admit signals                 - Show the signal whitelist decisions
    admit add-signal <name>       - Whitelist a signal name
    admit remove-signal <name>    - Remove a signal name
    admit add-peer <addr>         - Whitelist a peer address
    admit remove-peer <addr>      - Remove a peer address
    admit accept-all <on|off>     - Toggle accept-all mode

  General:
    stats                         - Show transport and admission counters
    help                          - Show this help
    quit                          - Exit the node`)
}

func (c *Console) cmdPeers() {
	all := c.table.AllPeers()
	if len(all) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No peers known")
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "\nKnown Peers (%d):\n", len(all))
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	for _, p := range all {
		lastSeen := "never"
		if !p.LastSeenAt.IsZero() {
			lastSeen = p.LastSeenAt.Format("15:04:05")
		}
		name := p.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(c.rl.Stdout(), "  %-22s %-16s %-9s last seen %s\n",
			p.Addr, name, p.Status, lastSeen)
	}
}

func (c *Console) cmdDock(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: dock <addr>")
		return
	}
	if err := c.transport.Dock(args[0]); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Dock failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Dock request sent to %s\n", args[0])
}

func (c *Console) cmdSend(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: send <addr> <signal> [json-payload]")
		return
	}

	sigType, payload, err := parseSignalArgs(args[1], args[2:])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	if err := c.transport.SendTo(args[0], sigType, payload); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Send failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Sent %s to %s\n", sigType, args[0])
}

func (c *Console) cmdBroadcast(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: broadcast <signal> [json-payload]")
		return
	}

	sigType, payload, err := parseSignalArgs(args[0], args[1:])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	reached, err := c.transport.Broadcast(sigType, payload)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Broadcast failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Broadcast %s to %d peer(s)\n", sigType, reached)
}

func (c *Console) cmdAdmit(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: admit <signals|add-signal|remove-signal|add-peer|remove-peer|accept-all> ...")
		return
	}

	switch args[0] {
	case "signals":
		stats := c.tumbler.GetStats()
		fmt.Fprintf(c.rl.Stdout(), "Accepted: %d  Rejected: %d\n", stats.Accepted, stats.Rejected)
		for name, count := range stats.PerSignal {
			fmt.Fprintf(c.rl.Stdout(), "  %-16s %d\n", name, count)
		}

	case "add-signal":
		if len(args) < 2 {
			fmt.Fprintln(c.rl.Stdout(), "Usage: admit add-signal <name>")
			return
		}
		c.tumbler.AddSignal(args[1])
		fmt.Fprintf(c.rl.Stdout(), "Whitelisted signal %s\n", args[1])

	case "remove-signal":
		if len(args) < 2 {
			fmt.Fprintln(c.rl.Stdout(), "Usage: admit remove-signal <name>")
			return
		}
		c.tumbler.RemoveSignal(args[1])
		fmt.Fprintf(c.rl.Stdout(), "Removed signal %s\n", args[1])

	case "add-peer":
		if len(args) < 2 {
			fmt.Fprintln(c.rl.Stdout(), "Usage: admit add-peer <addr>")
			return
		}
		c.tumbler.AddPeer(args[1])
		fmt.Fprintf(c.rl.Stdout(), "Whitelisted peer %s\n", args[1])

	case "remove-peer":
		if len(args) < 2 {
			fmt.Fprintln(c.rl.Stdout(), "Usage: admit remove-peer <addr>")
			return
		}
		c.tumbler.RemovePeer(args[1])
		fmt.Fprintf(c.rl.Stdout(), "Removed peer %s\n", args[1])

	case "accept-all":
		if len(args) < 2 || (args[1] != "on" && args[1] != "off") {
			fmt.Fprintln(c.rl.Stdout(), "Usage: admit accept-all <on|off>")
			return
		}
		c.tumbler.SetAcceptAll(args[1] == "on")
		fmt.Fprintf(c.rl.Stdout(), "Accept-all %s\n", args[1])

	default:
		fmt.Fprintf(c.rl.Stdout(), "Unknown admit subcommand: %s\n", args[0])
	}
}

func (c *Console) cmdBeats() {
	beats := c.liveness.Beats()
	if len(beats) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No heartbeats observed")
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "\nHeartbeat Senders (%d):\n", len(beats))
	for _, b := range beats {
		age := time.Since(b.LastBeatAt).Round(time.Second)
		fmt.Fprintf(c.rl.Stdout(), "  %-20s %6d beats, last %s ago\n", b.Sender, b.Count, age)
	}
}

func (c *Console) cmdCoverage() {
	if len(c.roster) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No expected peers configured")
		return
	}

	report := health.Coverage(c.table, c.roster)
	fmt.Fprintf(c.rl.Stdout(), "Roster: %d  Present: %d  Missing: %d  Unexpected: %d\n",
		report.Expected, len(report.Present), len(report.Missing), len(report.Unexpected))
	for _, addr := range report.Missing {
		fmt.Fprintf(c.rl.Stdout(), "  missing:    %s\n", addr)
	}
	for _, addr := range report.Unexpected {
		fmt.Fprintf(c.rl.Stdout(), "  unexpected: %s\n", addr)
	}
}

func (c *Console) cmdStats() {
	stats := c.transport.GetStats()
	admission := c.tumbler.GetStats()

	fmt.Fprintf(c.rl.Stdout(), "\nNode ID: %s\n", c.transport.NodeID())
	fmt.Fprintf(c.rl.Stdout(), "Listening on: %s\n", c.transport.LocalAddr())
	fmt.Fprintf(c.rl.Stdout(), "Peers: %d known, %d active\n", c.table.Len(), c.table.ActiveCount())
	fmt.Fprintln(c.rl.Stdout(), "Traffic:")
	fmt.Fprintf(c.rl.Stdout(), "  received:        %d\n", stats.Received)
	fmt.Fprintf(c.rl.Stdout(), "  dispatched:      %d\n", stats.Dispatched)
	fmt.Fprintf(c.rl.Stdout(), "  decode failures: %d\n", stats.DecodeFailures)
	fmt.Fprintf(c.rl.Stdout(), "  rejected:        %d\n", stats.Rejected)
	fmt.Fprintf(c.rl.Stdout(), "  sent:            %d\n", stats.Sent)
	fmt.Fprintf(c.rl.Stdout(), "Admission: %d accepted, %d rejected\n",
		admission.Accepted, admission.Rejected)
}

// parseSignalArgs resolves a signal name and an optional inline JSON
// payload.
func parseSignalArgs(name string, rest []string) (wire.SignalType, map[string]any, error) {
	sigType := wire.TypeForName(strings.ToUpper(name))
	if sigType == wire.SignalError && strings.ToUpper(name) != "ERROR" {
		return 0, nil, fmt.Errorf("unknown signal name: %s", name)
	}

	var payload map[string]any
	if len(rest) > 0 {
		raw := strings.Join(rest, " ")
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return 0, nil, fmt.Errorf("invalid payload JSON: %w", err)
		}
	}
	return sigType, payload, nil
}
