package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wast-harness/config"
	"github.com/wippyai/wast-harness/engine"
	"github.com/wippyai/wast-harness/runner"
	"github.com/wippyai/wast-harness/script"
)

func main() {
	var (
		scriptFile  = flag.String("script", "", "Path to the .wast script")
		configFile  = flag.String("config", "", "Path to a YAML config file")
		matcherName = flag.String("matcher", "", "Failure-message matcher: substring, exact or prefix")
		interp      = flag.Bool("interpreter", false, "Force the interpreter backend")
		verbose     = flag.Bool("v", false, "Debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *scriptFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: wastrun -script <file.wast> [-config harness.yml] [-matcher exact]")
		fmt.Fprintln(os.Stderr, "       wastrun -script <file.wast> -i  (interactive mode)")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *matcherName != "" {
		cfg.Matcher = *matcherName
	}
	if *interp {
		cfg.Interpreter = true
	}
	if *verbose {
		cfg.Verbose = true
	}
	if cfg.Verbose {
		log, err := zap.NewDevelopment()
		if err == nil {
			engine.SetLogger(log)
			defer log.Sync()
		}
	}

	opts, err := cfg.RunnerOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*scriptFile, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	clean, err := run(*scriptFile, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !clean {
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

func render(style lipgloss.Style, s string, color bool) string {
	if !color {
		return s
	}
	return style.Render(s)
}

func run(scriptFile string, opts runner.Options) (bool, error) {
	ctx := context.Background()
	color := term.IsTerminal(int(os.Stdout.Fd()))

	source, err := os.ReadFile(scriptFile)
	if err != nil {
		return false, fmt.Errorf("read script: %w", err)
	}

	r, err := runner.New(ctx, opts)
	if err != nil {
		return false, fmt.Errorf("create runner: %w", err)
	}
	defer r.Close(ctx)

	seq, err := r.Run(ctx, string(source))
	if err != nil {
		return false, fmt.Errorf("parse script: %w", err)
	}

	var summary runner.Summary
	for cmd, v := range seq {
		summary.Add(v)
		line := fmt.Sprintf("%-5s line %-4d %s", v.Outcome, cmd.Pos().Line, commandLabel(cmd))
		switch v.Outcome {
		case runner.Passed:
			fmt.Println(render(passStyle, line, color))
		case runner.Failed:
			fmt.Println(render(failStyle, line, color))
			fmt.Println(render(dimStyle, "      "+v.Detail, color))
		case runner.Errored:
			fmt.Println(render(errStyle, line, color))
			fmt.Println(render(dimStyle, "      "+v.Detail, color))
		}
	}

	fmt.Printf("\n%d commands: %d passed, %d failed, %d errors\n",
		summary.Total(), summary.Passed, summary.Failed, summary.Errored)
	return summary.Clean(), nil
}

// commandLabel is a one-line description of a command for output listings.
func commandLabel(cmd script.Command) string {
	switch c := cmd.(type) {
	case *script.ModuleCommand:
		if c.Name != "" {
			return "module " + c.Name
		}
		return "module"
	case *script.RegisterCommand:
		return fmt.Sprintf("register %q", c.As)
	case *script.ActionCommand:
		return "action " + actionLabel(c.Action)
	case *script.AssertReturnCommand:
		return "assert_return " + actionLabel(c.Action)
	case *script.AssertTrapCommand:
		return "assert_trap " + actionLabel(c.Action)
	case *script.AssertExhaustionCommand:
		return "assert_exhaustion " + actionLabel(c.Action)
	case *script.AssertMalformedCommand:
		return "assert_malformed"
	case *script.AssertInvalidCommand:
		return "assert_invalid"
	case *script.AssertUnlinkableCommand:
		return "assert_unlinkable"
	case *script.AssertUninstantiableCommand:
		return "assert_uninstantiable"
	}
	return fmt.Sprintf("%T", cmd)
}

func actionLabel(act script.Action) string {
	if act.Kind == script.ActionGet {
		return fmt.Sprintf("get %q", act.Field)
	}
	return fmt.Sprintf("%q/%d", act.Field, len(act.Args))
}
