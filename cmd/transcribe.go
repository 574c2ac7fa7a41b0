package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"dualsub/internal/worker"

	"github.com/spf13/cobra"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <input-file>",
	Short: "Transcribe audio/video to bilingual SRT subtitles",
	Long: `Transcribe an audio or video file and translate it into Simplified Chinese.
Writes <input>.srt (translated text) and, unless disabled, <input>.txt with the
original and translated text side by side.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

var (
	output         string
	metricsFile    string
	model          string
	windowSeconds  float64
	thresholdBytes int
	rateLimit      int
	saveJSON       bool
	noText         bool
	cjkCPL         int
)

// validExts lists the file types accepted by the transcribe command.
var validExts = map[string]bool{
	".mp3": true, ".m4a": true, ".wav": true, ".flac": true,
	".ogg": true, ".aac": true, ".mp4": true, ".mov": true,
	".mkv": true, ".avi": true, ".flv": true, ".webm": true,
}

func init() {
	transcribeCmd.Flags().StringVarP(&output, "output", "o", "", "output SRT path (default: <input>.srt)")
	transcribeCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	transcribeCmd.Flags().StringVarP(&model, "model", "m", "", "transcription model (overrides config)")
	transcribeCmd.Flags().Float64Var(&windowSeconds, "window", 0, "window length in seconds for large files (overrides config)")
	transcribeCmd.Flags().IntVar(&thresholdBytes, "chunk-threshold", 0, "file size in bytes at which chunking starts (overrides config)")
	transcribeCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "max window requests per minute, 0 = unlimited (overrides config)")
	transcribeCmd.Flags().BoolVar(&saveJSON, "save-json", false, "save the transcript JSON alongside the SRT")
	transcribeCmd.Flags().BoolVar(&noText, "no-text", false, "do not write the bilingual .txt transcript")
	transcribeCmd.Flags().IntVar(&cjkCPL, "cjk-cpl", 0, "CJK characters per subtitle line (overrides config)")

	rootCmd.AddCommand(transcribeCmd)
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	absPath, err := resolveInput(inputPath)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.API.Model = model
	}
	if flags.Changed("window") {
		cfg.Pipeline.WindowSeconds = windowSeconds
	}
	if flags.Changed("chunk-threshold") {
		cfg.Pipeline.ChunkThresholdBytes = thresholdBytes
	}
	if flags.Changed("rate-limit") {
		cfg.Pipeline.RateLimitPerMin = rateLimit
	}
	if flags.Changed("cjk-cpl") {
		cfg.CJKCharsPerLine = cjkCPL
	}
	if saveJSON {
		cfg.WriteJSON = true
	}
	if noText {
		cfg.WriteText = false
	}

	// Setup signal handling for graceful cancellation.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := worker.Run(ctx, worker.Options{
		InputPath:   absPath,
		OutputPath:  output,
		MetricsPath: metricsFile,
		Config:      cfg,
	})
	if err != nil {
		return err
	}

	if !quiet {
		slog.Info("done", "srt", out.SRT)
	}
	return nil
}

// resolveInput makes the path absolute and checks it is a supported media file.
func resolveInput(inputPath string) (string, error) {
	absPath, err := filepath.Abs(inputPath)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("file not found: %s", inputPath)
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	if !validExts[ext] {
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
	return absPath, nil
}
