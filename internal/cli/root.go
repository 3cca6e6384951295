package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/apresai/promptpatterns/internal/config"
	"github.com/apresai/promptpatterns/internal/patterns"
	"github.com/apresai/promptpatterns/internal/progress"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:          "promptpatterns [1|2|3|all]",
	Short:        "Run prompt-engineering pattern demos against hosted LLMs",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runPatterns,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "promptpatterns %s\n", Version)
	},
}

var runCmd = &cobra.Command{
	Use:   "run [1|2|3|all]",
	Short: "Run one pattern demo or all of them",
	Long: `Run a pattern demo:

  1    Style Transfer          rewrite one text in several styles
  2    Reverse Neutralization  neutral answer vs. expert personas
  3    Content Optimization    Self-Refine loop with scored critiques
  all  every pattern in order

Without an argument an interactive menu opens.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPatterns,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in styles, personas and refinement tasks",
	Run: func(cmd *cobra.Command, args []string) {
		printCatalogs(cmd.OutOrStdout())
	},
}

var (
	flagAdvanced   bool
	flagOutput     string
	flagSave       bool
	flagResultsDir string
	flagModel      string
	flagRegion     string
	flagProvider   string
	flagCompare    string
	flagInput      string
	flagUpload     string
	flagRounds     int
	flagVerbose    bool
)

// v is the configuration registry the persistent flags are bound to.
var v = config.NewViper()

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagModel, "model", "m", "", "Model ID (overrides BEDROCK_MODEL_ID / ANTHROPIC_MODEL)")
	pf.StringVarP(&flagRegion, "region", "r", "", "AWS region for Bedrock and S3 (overrides BEDROCK_REGION)")
	pf.StringVarP(&flagProvider, "provider", "P", "", "Completion provider: bedrock or anthropic (overrides LLM_PROVIDER)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging on stderr")

	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		f := cmd.Flags()
		f.BoolVarP(&flagAdvanced, "advanced", "a", false, "Run the advanced scenarios")
		f.StringVarP(&flagOutput, "output", "o", "text", "Output format: text or json")
		f.BoolVarP(&flagSave, "save", "s", false, "Save the result log to the results directory")
		f.StringVar(&flagResultsDir, "results-dir", "", "Directory for saved results (overrides RESULTS_DIR)")
		f.StringVarP(&flagCompare, "compare", "c", "", "Comma-separated model IDs to run one after another (overrides COMPARE_MODELS)")
		f.StringVarP(&flagInput, "input", "i", "", "Custom input for patterns 1 and 2: text, file path, PDF or URL")
		f.StringVarP(&flagUpload, "upload", "u", "", "Upload the saved result log to s3://bucket/prefix")
		f.IntVarP(&flagRounds, "rounds", "n", -1, "Override the refinement rounds of pattern 3 (0 or more)")
	}

	_ = v.BindPFlag(config.KeyModel, pf.Lookup("model"))
	_ = v.BindPFlag(config.KeyRegion, pf.Lookup("region"))
	_ = v.BindPFlag(config.KeyProvider, pf.Lookup("provider"))
	v.SetDefault(config.KeyLogLevel, "warn")
}

func Execute() error {
	return rootCmd.Execute()
}

func runPatterns(cmd *cobra.Command, args []string) error {
	sel := selection{
		Pattern:  "",
		Advanced: flagAdvanced,
		Output:   flagOutput,
		Model:    flagModel,
		Input:    flagInput,
	}
	if len(args) > 0 {
		sel.Pattern = args[0]
	} else {
		var err error
		if sel, err = runInteractiveSetup(sel); err != nil {
			return err
		}
	}

	selected, err := patterns.ParseSelection(sel.Pattern)
	if err != nil {
		return err
	}
	sel.Output = strings.ToLower(sel.Output)
	if sel.Output != "text" && sel.Output != "json" {
		return fmt.Errorf("invalid output %q: must be text or json", sel.Output)
	}
	if flagRounds < -1 {
		return fmt.Errorf("invalid rounds %d: must be 0 or more", flagRounds)
	}
	if flagUpload != "" && !strings.HasPrefix(flagUpload, "s3://") {
		return fmt.Errorf("invalid upload target %q: must start with s3://", flagUpload)
	}

	if sel.Model != "" {
		v.Set(config.KeyModel, sel.Model)
	}
	if flagResultsDir != "" {
		v.Set(config.KeyResultsDir, flagResultsDir)
	}
	if flagCompare != "" {
		v.Set(config.KeyCompare, flagCompare)
	}
	if flagVerbose {
		v.Set(config.KeyLogLevel, "debug")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, v, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	opts := runOptions{
		Patterns: selected,
		Advanced: sel.Advanced,
		JSON:     sel.Output == "json",
		Save:     flagSave,
		Upload:   flagUpload,
		Input:    sel.Input,
		Rounds:   flagRounds,
	}

	// In JSON mode stdout carries the document, so progress goes to stderr.
	if opts.JSON && !flagVerbose {
		r := progress.NewBarRenderer(os.Stderr)
		defer r.Finish()
		opts.Progress = r.Handle
	}

	return a.run(ctx, opts)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
