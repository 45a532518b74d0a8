package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pf274/jwt-pizza/internal/contract"
	"github.com/pf274/jwt-pizza/pkg/twincore"
	"github.com/spf13/cobra"
)

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test [scenario files or directories...]",
		Short: "Run API contract scenarios against a JWT Pizza backend",
		Long: `Test runs the bundled contract scenarios, then any scenario files
given or found in contract.dir, against the backend at --base-url.

Scenarios with a setup block reset and seed the backend through its
/admin plane, so point this at pizza-twin or another backend that has one.`,
		RunE: runTest,
	}
	cmd.Flags().String("base-url", "", "backend base URL")
	cmd.Flags().Duration("timeout", 0, "per-request timeout")
	cmd.Flags().Bool("no-bundled", false, "skip the bundled scenarios")
	cmd.Flags().Bool("verbose", false, "log passing steps too")
	return cmd
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"contract.base_url": "base-url",
		"contract.timeout":  "timeout",
		"server.verbose":    "verbose",
	})
	if err != nil {
		return err
	}

	var scenarios []*contract.Scenario
	if skip, _ := cmd.Flags().GetBool("no-bundled"); !skip {
		bundled, err := contract.Bundled()
		if err != nil {
			return err
		}
		scenarios = append(scenarios, bundled...)
	}
	sources := args
	if len(sources) == 0 && cfg.Contract.Dir != "" {
		sources = []string{cfg.Contract.Dir}
	}
	extra, err := loadScenarios(sources)
	if err != nil {
		return err
	}
	scenarios = append(scenarios, extra...)
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios to run")
	}

	runner := contract.NewRunner(cfg.Contract.BaseURL, twincore.NewLogger(cfg.Server.Verbose))
	runner.HTTP.Timeout = cfg.Contract.Timeout

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running %d scenarios against %s\n", len(scenarios), cfg.Contract.BaseURL)

	var passed, failed, steps int
	for _, s := range scenarios {
		result, runErr := runner.Run(cmd.Context(), s)
		p, f, st := printResult(out, s, result, runErr)
		passed += p
		failed += f
		steps += st
	}

	fmt.Fprintf(out, "\n%d steps: %d passed, %d failed\n", steps, passed, failed)
	if failed > 0 {
		return fmt.Errorf("%d steps failed", failed)
	}
	return nil
}

func loadScenarios(paths []string) ([]*contract.Scenario, error) {
	var scenarios []*contract.Scenario
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scenarios %s: %w", p, err)
		}
		if info.IsDir() {
			ss, err := contract.LoadDir(p)
			if err != nil {
				return nil, err
			}
			scenarios = append(scenarios, ss...)
			continue
		}
		s, err := contract.Load(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// printResult prints one scenario's steps and returns counts.
func printResult(out io.Writer, s *contract.Scenario, result *contract.Result, err error) (passed, failed, steps int) {
	fmt.Fprintf(out, "\n--- %s ---\n", s.Name)
	if s.Description != "" {
		fmt.Fprintf(out, "    %s\n", s.Description)
	}
	fmt.Fprintln(out)

	if err != nil {
		fmt.Fprintf(out, "  ERROR: %v\n", err)
		return 0, 1, 0
	}

	for _, sr := range result.Steps {
		steps++
		if sr.Passed {
			fmt.Fprintf(out, "  PASS  %-50s (%s)\n", sr.Name, sr.Duration.Round(time.Millisecond))
			passed++
		} else {
			fmt.Fprintf(out, "  FAIL  %-50s (%s)\n", sr.Name, sr.Duration.Round(time.Millisecond))
			fmt.Fprintf(out, "        %s\n", sr.Error)
			failed++
		}
	}

	label := "PASS"
	if !result.Passed {
		label = "FAIL"
	}
	fmt.Fprintf(out, "\n  Scenario: %s (%s)\n", label, result.Duration.Round(time.Millisecond))
	return
}
