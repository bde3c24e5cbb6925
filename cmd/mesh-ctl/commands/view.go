// Package commands implements the mesh-ctl event log commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/signalmesh/signalmesh-go/pkg/log"
)

// BuildFilter assembles an event filter from flag values. Empty strings
// leave the corresponding criterion unset.
func BuildFilter(direction, category, peer string) (log.Filter, error) {
	var filter log.Filter
	filter.PeerAddr = peer

	if direction != "" {
		d, err := parseDirection(direction)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Direction = &d
	}
	if category != "" {
		c, err := parseCategory(category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}
	return filter, nil
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "signal":
		return log.CategorySignal, nil
	case "peer":
		return log.CategoryPeer, nil
	case "admission":
		return log.CategoryAdmission, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be signal, peer, admission, or error)", s)
	}
}

// RunView streams matching events from the file to output in a
// human-readable format.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	nodeID := shortenNodeID(event.NodeID)

	fmt.Fprintf(w, "%s [node:%s] %-3s %s", ts, nodeID, event.Direction, event.Category)
	if event.PeerAddr != "" {
		fmt.Fprintf(w, " peer=%s", event.PeerAddr)
	}
	fmt.Fprintln(w)

	switch {
	case event.Signal != nil:
		formatSignalDetails(w, event.Signal)
	case event.Peer != nil:
		formatPeerDetails(w, event.Peer)
	case event.Admission != nil:
		formatAdmissionDetails(w, event.Admission)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// shortenNodeID returns the first 8 characters of the node ID.
func shortenNodeID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatSignalDetails(w io.Writer, sig *log.SignalEvent) {
	fmt.Fprintf(w, "  Signal: %s (0x%02x)\n", sig.Name, sig.Type)
	if sig.Format != "" {
		fmt.Fprintf(w, "  Format: %s\n", sig.Format)
	}
	if sig.Size > 0 {
		fmt.Fprintf(w, "  Size: %d bytes\n", sig.Size)
	}
}

func formatPeerDetails(w io.Writer, peer *log.PeerEvent) {
	if peer.OldStatus != "" {
		fmt.Fprintf(w, "  %s: %s -> %s\n", peer.Addr, peer.OldStatus, peer.NewStatus)
	} else {
		fmt.Fprintf(w, "  %s: -> %s\n", peer.Addr, peer.NewStatus)
	}
	if peer.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", peer.Reason)
	}
}

func formatAdmissionDetails(w io.Writer, adm *log.AdmissionEvent) {
	verdict := "rejected"
	if adm.Accepted {
		verdict = "accepted"
	}
	fmt.Fprintf(w, "  %s %s\n", adm.Signal, verdict)
}

func formatErrorDetails(w io.Writer, errEvent *log.ErrorEvent) {
	fmt.Fprintf(w, "  Message: %s\n", errEvent.Message)
	if errEvent.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", errEvent.Context)
	}
}
