package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/polycode-insight/internal/application"
	appanalysis "github.com/bryanwahyu/polycode-insight/internal/application/analysis"
	"github.com/bryanwahyu/polycode-insight/internal/config"
	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
	"github.com/bryanwahyu/polycode-insight/internal/formatter"
)

// EngineFactory builds the analysis engine from configuration.
type EngineFactory func(ctx context.Context, cfg config.EngineConfig) (domain.Engine, error)

// ErrAnalysisFailed is returned when the submission ends in the Failed state.
var ErrAnalysisFailed = errors.New("analysis failed")

type analyzeOptions struct {
	configPath   string
	source       string
	targets      []string
	file         string
	outputFormat string
	quiet        bool
}

func NewAnalyzeCmd(newEngine EngineFactory) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Translate source code and analyze its complexity",
		Long: `Send source code to the analysis engine and print translations into every
target language, together with complexity, suggestions and test cases.

Examples:
  # Translate a Python file to Go and Rust
  polycode analyze -s Python -t Go -t Rust -f sum.py

  # Read from stdin, machine-readable output
  cat sum.py | polycode analyze -s python -t go,rust -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, newEngine)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "config.yaml", "Path to config file")
	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "Source language (e.g. Python)")
	cmd.Flags().StringSliceVarP(&opts.targets, "target", "t", nil, "Target language, repeatable or comma separated")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "-", "Source file, - for stdin")
	cmd.Flags().StringVarP(&opts.outputFormat, "output", "o", "human", "Output format ("+strings.Join(formatter.Formats, ", ")+")")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not show progress")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions, newEngine EngineFactory) error {
	code, err := readSource(cmd.InOrStdin(), opts.file)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	engine, err := newEngine(ctx, cfg.Engine)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	svc := &appanalysis.Service{
		Engine: engine,
		Clock:  application.SystemClock{},
		Retry: appanalysis.RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			MaxDelay:   cfg.Retry.MaxDelay,
		},
	}

	human := opts.outputFormat == "human" || opts.outputFormat == ""
	var s *spinner.Spinner
	if human && !opts.quiet {
		s = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = " Validating request..."
		s.Start()
	}

	req := domain.AnalysisRequest{SourceCode: code, SourceLanguage: opts.source, TargetLanguages: opts.targets}
	rec, err := svc.Analyze(ctx, "cli", req, func(_ domain.SubmissionID, ev domain.Event) {
		if s == nil {
			return
		}
		s.Lock()
		s.Suffix = " " + progressMessage(ev)
		s.Unlock()
	})
	if s != nil {
		s.Stop()
	}

	out := cmd.OutOrStdout()
	if err != nil && human {
		formatter.DisplayError(cmd.ErrOrStderr(), err)
		return ErrAnalysisFailed
	}
	if derr := formatter.DisplayResults(out, rec, opts.outputFormat); derr != nil {
		return derr
	}
	if err != nil {
		return ErrAnalysisFailed
	}
	if human && rec.Outcome != nil && rec.Outcome.Partial() {
		color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "%s\n", rec.Outcome.Summary())
	}
	return nil
}

func progressMessage(ev domain.Event) string {
	switch ev.State {
	case domain.StateValidating:
		return "Validating request..."
	case domain.StateDispatching:
		if ev.Attempt > 1 {
			return fmt.Sprintf("Waiting for the analysis engine (attempt %d)...", ev.Attempt)
		}
		return "Waiting for the analysis engine..."
	case domain.StateNormalizing:
		return "Reading the engine response..."
	default:
		return string(ev.State)
	}
}

func readSource(stdin io.Reader, file string) (string, error) {
	if file == "" || file == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}
	return string(data), nil
}
