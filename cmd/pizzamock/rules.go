package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pf274/jwt-pizza/internal/fixtures"
	"github.com/pf274/jwt-pizza/pkg/mockroute"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rule files or directories...>",
		Short: "Check rule files without serving them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, p := range args {
				rules, err := collectRules([]string{p})
				if err != nil {
					fmt.Fprintf(out, "  FAIL  %s\n        %v\n", p, err)
					failed++
					continue
				}
				fmt.Fprintf(out, "  OK    %-40s (%d rules)\n", p, len(rules))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d rule sources invalid", failed, len(args))
			}
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <scenario...>",
		Short: "Write built-in scenarios as a YAML rule file",
		Long: `Export renders built-in scenarios as a rule file that serve and
/admin/state accept, as a starting point for custom rules.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rules []mockroute.Rule
			for _, name := range args {
				rs, err := fixtures.Scenario(name)
				if err != nil {
					return err
				}
				rules = append(rules, rs...)
			}
			if output == "" || output == "-" {
				return writeRuleFile(cmd.OutOrStdout(), rules)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := writeRuleFile(f, rules); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rules to %s\n", len(rules), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

// writeRuleFile encodes rules as YAML. Bodies and responses are normalized
// first so typed values come out with their JSON field names.
func writeRuleFile(w io.Writer, rules []mockroute.Rule) error {
	f := mockroute.RuleFile{Rules: make([]mockroute.Rule, 0, len(rules))}
	for _, r := range rules {
		n, err := r.Normalized()
		if err != nil {
			return err
		}
		f.Rules = append(f.Rules, n)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding rules: %w", err)
	}
	return enc.Close()
}

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range fixtures.ScenarioNames() {
				rules, _ := fixtures.Scenario(name)
				fmt.Fprintf(out, "%-16s", name)
				for i, r := range rules {
					if i > 0 {
						fmt.Fprint(out, ", ")
					}
					fmt.Fprint(out, r.Method+" "+r.Pattern)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
