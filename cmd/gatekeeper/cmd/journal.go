package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/gatekeeper/internal/repository/journal"
)

// journalCmd prints a CBOR event journal as text.
var journalCmd = &cobra.Command{
	Use:   "journal <path>",
	Short: "Print the event journal.",
	Long: `Decodes the CBOR event journal written by the daemon and prints one event per line:
timestamp, kind, peer, command, outcome, count and detail.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dumpJournal(cmd.OutOrStdout(), args[0])
	},
}

// dumpJournal writes every event in path to out.
func dumpJournal(out io.Writer, path string) error {
	reader, err := journal.NewReader(path)
	if err != nil {
		return err
	}

	defer func() {
		_ = reader.Close()
	}()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		if _, err := fmt.Fprintf(out, "%s\t%-13s\t%s\t%s\t%s\t%d\t%s\n",
			event.Timestamp.Local().Format(time.RFC3339Nano),
			event.Kind,
			dash(event.Peer),
			dash(event.Command),
			dash(event.Outcome),
			event.Count,
			dash(event.Detail),
		); err != nil {
			return err
		}
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
