// Command curate runs the voice sample curation pipeline on a local file and
// prints the clips it produced. It is useful for tuning the curation settings
// without calling the voice API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/maauso/dubvoice-api/internal/audio"
	"github.com/maauso/dubvoice-api/internal/config"
	"github.com/maauso/dubvoice-api/internal/curation"
	"github.com/maauso/dubvoice-api/internal/media"
	"github.com/maauso/dubvoice-api/internal/separation"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitValidation = 4
	ExitNoAudio    = 5
	ExitInterrupt  = 130
)

// ErrFileNotFound is returned when the input file does not exist.
var ErrFileNotFound = errors.New("input file not found")

type options struct {
	out          string
	mode         string
	budget       int
	maxChunk     time.Duration
	separate     bool
	ffmpegPath   string
	spleeterPath string
	verbose      bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "curate <audio-file>",
		Short: "Curate voice samples from a recording",
		Long: `Curate voice samples from a recording.

By default the input is treated as an isolated vocal track. Pass --separate
to run source separation first.

Modes:
  merge    keep only the speech, join it and re-split it into chunks
  segment  cut the track at silences and keep an evenly spread selection`,
		Example: `  curate vocals.wav -o samples
  curate interview.mp3 --separate --mode segment --budget 10`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCurate(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output directory (default: <input>_samples)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(curation.ModeMerge), "Curation mode: merge or segment")
	cmd.Flags().IntVarP(&opts.budget, "budget", "b", audio.DefaultSampleBudget, "Maximum number of clips")
	cmd.Flags().DurationVar(&opts.maxChunk, "max-chunk", 30*time.Second, "Longest clip in merge mode")
	cmd.Flags().BoolVar(&opts.separate, "separate", false, "Separate vocals before curating")
	cmd.Flags().StringVar(&opts.ffmpegPath, "ffmpeg", "ffmpeg", "Path to the ffmpeg binary")
	cmd.Flags().StringVar(&opts.spleeterPath, "spleeter", "spleeter", "Path to the spleeter binary")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline progress")

	return cmd
}

func runCurate(ctx context.Context, stdout io.Writer, input string, opts options) error {
	mode, err := curation.ParseMode(strings.ToLower(opts.mode))
	if err != nil {
		return err
	}
	if opts.budget <= 0 {
		return fmt.Errorf("%w: --budget must be positive", config.ErrInvalidLimit)
	}
	if _, err := os.Stat(input); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, input)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}

	out := opts.out
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + "_samples"
	}
	if err := os.MkdirAll(out, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger := config.NewLogger(os.Stderr, "text", level)

	track := input
	if opts.separate {
		separator := separation.NewSpleeter(opts.spleeterPath, separation.WithLogger(logger))
		res, err := separator.Separate(ctx, input, filepath.Join(out, "stems"))
		if err != nil {
			return err
		}
		track = res.VocalsPath
	}

	transcoder := media.NewFFmpegTranscoder(opts.ffmpegPath)
	pipeline := curation.New(transcoder,
		curation.WithMode(mode),
		curation.WithSampleBudget(opts.budget),
		curation.WithMaxChunk(opts.maxChunk),
		curation.WithLogger(logger),
	)

	clips, err := pipeline.Run(ctx, track, out)
	if err != nil {
		return err
	}

	var total int
	for _, c := range clips {
		total += c.DurationMs
		fmt.Fprintf(stdout, "%s\t%s\n", c.Path, time.Duration(c.DurationMs)*time.Millisecond)
	}
	fmt.Fprintf(stdout, "%d clips, %s total (%s mode)\n", len(clips), time.Duration(total)*time.Millisecond, mode)
	return nil
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupt
	case errors.Is(err, ErrFileNotFound), errors.Is(err, curation.ErrUnknownMode),
		errors.Is(err, config.ErrInvalidLimit):
		return ExitValidation
	case errors.Is(err, curation.ErrEmptyMerge), errors.Is(err, audio.ErrNoSegments):
		return ExitNoAudio
	default:
		return ExitGeneral
	}
}
