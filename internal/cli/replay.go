package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentra-systems/sentra/internal/normalizer"
)

var replayInput string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a historical dataset through the pipeline",
	Long: `Streams a dataset CSV through normalize → score → decide → feed →
dispatch and prints a run summary. Malformed rows are skipped and
counted.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "dataset CSV file (required)")
	replayCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, _ []string) error {
	file, err := os.Open(replayInput)
	if err != nil {
		return err
	}
	defer file.Close()

	reader, err := normalizer.NewCSVReader(file, normalizer.SourceDataset)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	in := make(chan normalizer.Record, 256)
	go func() {
		defer close(in)
		for {
			rec, err := reader.Next()
			if err == io.EOF {
				return
			}
			select {
			case in <- rec:
			case <-cmd.Context().Done():
				return
			}
		}
	}()

	summary := rt.pipeline.Run(cmd.Context(), in)

	fmt.Printf("processed:   %d\n", summary.Processed)
	fmt.Printf("malformed:   %d\n", int64(reader.Skipped())+summary.Failed)
	fmt.Printf("allowed:     %d\n", summary.Allowed)
	fmt.Printf("restricted:  %d\n", summary.Restricted)
	fmt.Printf("blocked:     %d\n", summary.Blocked)
	fmt.Printf("dispatched:  %d\n", summary.Dispatched)
	fmt.Printf("suppressed:  %d\n", summary.Suppressed)
	return nil
}
