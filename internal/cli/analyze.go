package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sentra-systems/sentra/internal/analyzer"
)

var analyzeCapturePath string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the traffic analyzer over a saved capture",
	Long: `Reads a capture export (tshark CSV or JSON lines), reconstructs
flows, runs the detectors, and pushes findings through the scoring and
decision pipeline. Prints a run summary.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCapturePath, "capture", "", "capture export file (required)")
	analyzeCmd.MarkFlagRequired("capture")
	rootCmd.AddCommand(analyzeCmd)
}

// openPacketSource picks the packet source from the file extension:
// .jsonl/.json → JSON lines, anything else → CSV.
func openPacketSource(r io.Reader, path string) (analyzer.PacketSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json":
		return analyzer.NewJSONLSource(r), nil
	default:
		return analyzer.NewCSVSource(r)
	}
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	rt, err := buildRuntime(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	summary, err := analyzeCapture(cmd.Context(), rt, analyzeCapturePath)
	if err != nil {
		return err
	}

	pipeSummary := rt.pipeline.Snapshot()
	fmt.Printf("packets:     %d\n", summary.Packets)
	fmt.Printf("skipped:     %d\n", summary.Skipped)
	fmt.Printf("findings:    %d\n", summary.Findings)
	fmt.Printf("blocked:     %d\n", pipeSummary.Blocked)
	fmt.Printf("restricted:  %d\n", pipeSummary.Restricted)
	fmt.Printf("dispatched:  %d\n", pipeSummary.Dispatched)
	fmt.Printf("suppressed:  %d\n", pipeSummary.Suppressed)
	return nil
}
