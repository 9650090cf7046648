package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/media/ffprobe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file with ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			result, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if raw {
				fmt.Fprintln(out, string(result.RawJSON()))
				return nil
			}

			width, height := result.Dimensions()
			fmt.Fprintf(out, "Container: %s\n", result.Format.FormatName)
			fmt.Fprintf(out, "Duration:  %.2fs\n", result.DurationSeconds())
			fmt.Fprintf(out, "Streams:   %d video, %d audio\n", result.VideoStreamCount(), result.AudioStreamCount())
			if width > 0 {
				fmt.Fprintf(out, "Video:     %dx%d\n", width, height)
			}
			if err := result.ValidateUpload(); err != nil {
				fmt.Fprintf(out, "Usable:    no (%v)\n", err)
			} else {
				fmt.Fprintln(out, "Usable:    yes")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "json", false, "Print the raw ffprobe JSON")
	return cmd
}
