/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/qrgate/portal/internal/scan"
	"github.com/spf13/cobra"
)

var (
	scanText     string
	scanInterval time.Duration
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [image...]",
	Short: "Decode QR images or pasted text",
	Long: `Feeds image files through the scan viewer as camera frames and prints
every decoded result. --text parses the given text as if it had been typed in.

	qrgate scan gate.png
	qrgate scan --text '{"v":1,"phone":"010","token":"abc"}'
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && scanText == "" {
			return errors.New("pass image files or --text")
		}

		var (
			camera scan.Camera
			frames *scan.FrameCamera
		)
		if len(args) > 0 {
			frames = scan.NewFrameCamera(args, scanInterval)
			camera = frames
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		viewer := scan.NewViewer(camera, func(s scan.Snapshot) {
			_ = enc.Encode(s)
		})

		if scanText != "" {
			viewer.Manual(scanText)
		}
		if frames == nil {
			return nil
		}

		if err := viewer.Start(cmd.Context()); err != nil {
			return fmt.Errorf("start camera: %w", err)
		}
		frames.Wait()
		if err := viewer.Stop(); err != nil {
			return err
		}

		if viewer.Snapshot().State != scan.StateParsed {
			fmt.Fprintln(os.Stderr, "no readable QR payload found")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanText, "text", "", "parse this text instead of an image")
	scanCmd.Flags().DurationVar(&scanInterval, "interval", 0, "delay between frames")
}
