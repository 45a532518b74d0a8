package main

import (
	"fmt"
	"os"

	"github.com/pf274/jwt-pizza/internal/config"
	"github.com/pf274/jwt-pizza/internal/fixtures"
	"github.com/pf274/jwt-pizza/pkg/admin"
	"github.com/pf274/jwt-pizza/pkg/mockroute"
	"github.com/pf274/jwt-pizza/pkg/twincore"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [rule files or directories...]",
		Short: "Serve mock routes over HTTP",
		Long: `Serve answers JWT Pizza API calls from rule files and built-in scenarios.

Requests that match a rule but break its contract get 417 with a diff.
Requests that match no rule get 404. POST /admin/reset reloads every rule.`,
		RunE: runServe,
	}
	cmd.Flags().Int("port", 0, "HTTP listen port")
	cmd.Flags().Duration("latency", 0, "simulated latency per request")
	cmd.Flags().Float64("fail-rate", 0, "random failure rate 0.0-1.0")
	cmd.Flags().Bool("verbose", false, "log every request")
	cmd.Flags().StringSlice("scenario", nil, "built-in scenario to register (repeatable)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"server.port":      "port",
		"server.latency":   "latency",
		"server.fail_rate": "fail-rate",
		"server.verbose":   "verbose",
		"mock.scenarios":   "scenario",
	})
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Mock.Rules = args
	}

	srv, state, err := newMockServer(cfg)
	if err != nil {
		return err
	}
	srv.Logger.Info("pizzamock ready",
		"port", cfg.Server.Port,
		"rules", len(state.routes.Rules()),
		"scenarios", cfg.Mock.Scenarios,
		"admin_endpoint", "/admin/health",
	)
	return srv.Serve(cmd.Context())
}

// ruleSet is the admin state of the mock server. Reset reloads the
// configured rule sources instead of leaving the table empty.
type ruleSet struct {
	routes *mockroute.Registrar
	mock   config.Mock
	srv    *twincore.Server
}

func (s *ruleSet) Snapshot() any {
	return s.routes.Snapshot()
}

func (s *ruleSet) LoadState(data []byte) error {
	return s.routes.LoadState(data)
}

func (s *ruleSet) History() any {
	return s.routes.History()
}

func (s *ruleSet) Reset() {
	s.routes.Reset()
	if err := s.load(); err != nil {
		s.srv.Logger.Error("reloading rules", "error", err)
	}
}

// load registers the rule files first and the scenarios after, so a
// scenario overrides a file rule for the same pattern.
func (s *ruleSet) load() error {
	rules, err := collectRules(s.mock.Rules)
	if err != nil {
		return err
	}
	for _, name := range s.mock.Scenarios {
		rs, err := fixtures.Scenario(name)
		if err != nil {
			return err
		}
		rules = append(rules, rs...)
	}
	for _, rule := range rules {
		if err := s.routes.Register(rule); err != nil {
			return err
		}
	}
	return nil
}

// collectRules loads each path as a rule file or a directory of them.
func collectRules(paths []string) ([]mockroute.Rule, error) {
	var rules []mockroute.Rule
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("rules %s: %w", p, err)
		}
		var rs []mockroute.Rule
		if info.IsDir() {
			rs, err = mockroute.LoadRulesDir(p)
		} else {
			rs, err = mockroute.LoadRules(p)
		}
		if err != nil {
			return nil, err
		}
		rules = append(rules, rs...)
	}
	return rules, nil
}

// newMockServer builds the server: admin plane, metrics, then every other
// path dispatched against the rule table behind fault injection.
func newMockServer(cfg *config.Config) (*twincore.Server, *ruleSet, error) {
	srv := twincore.New(&twincore.Config{
		Name:     "pizzamock",
		Port:     cfg.Server.Port,
		Latency:  cfg.Server.Latency,
		FailRate: cfg.Server.FailRate,
		Verbose:  cfg.Server.Verbose,
	})

	state := &ruleSet{routes: mockroute.NewRegistrar(), mock: cfg.Mock, srv: srv}
	if err := state.load(); err != nil {
		return nil, nil, err
	}

	admin.NewHandler(state, srv, nil).Routes(srv.Router)
	handler := mockroute.NewHandler(state.routes, srv.Logger, srv.Metrics.ObserveDispatch)
	srv.Router.Handle("/*", srv.Middleware().FaultInjection(handler))
	return srv, state, nil
}
