package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/signalmesh/signalmesh-go/pkg/log"
)

// jsonEvent is the JSONL export shape. Field names are stable; the CBOR
// integer keys of the event file never leak into exports.
type jsonEvent struct {
	Timestamp string              `json:"timestamp"`
	NodeID    string              `json:"node_id"`
	Direction string              `json:"direction"`
	Category  string              `json:"category"`
	PeerAddr  string              `json:"peer_addr,omitempty"`
	Signal    *log.SignalEvent    `json:"signal,omitempty"`
	Peer      *log.PeerEvent      `json:"peer,omitempty"`
	Admission *log.AdmissionEvent `json:"admission,omitempty"`
	Error     *log.ErrorEvent     `json:"error,omitempty"`
}

// RunExport writes every event in the file as one JSON object per line.
// An empty outputPath writes to stdout.
func RunExport(path, outputPath string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer reader.Close()

	var output io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	encoder := json.NewEncoder(output)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		line := jsonEvent{
			Timestamp: event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z"),
			NodeID:    event.NodeID,
			Direction: event.Direction.String(),
			Category:  event.Category.String(),
			PeerAddr:  event.PeerAddr,
			Signal:    event.Signal,
			Peer:      event.Peer,
			Admission: event.Admission,
			Error:     event.Error,
		}
		if err := encoder.Encode(line); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
}
