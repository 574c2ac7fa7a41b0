package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"dualsub/internal/audio"
	"dualsub/internal/worker"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <input-file>",
	Short: "Show how a file would be split into windows, without uploading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		absPath, err := resolveInput(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		windows, err := worker.Inspect(cmd.Context(), absPath, cfg)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WINDOW\tSTART\tEND\tSAMPLES\tWAV BYTES")
		for _, w := range windows {
			fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%d\t%d\n",
				w.Index+1, w.Start, w.End, len(w.Samples), 44+2*len(w.Samples))
		}
		tw.Flush()
		fmt.Printf("%d windows at %d Hz\n", len(windows), audio.TargetSampleRate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
