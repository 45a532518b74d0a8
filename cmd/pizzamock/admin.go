package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pf274/jwt-pizza/internal/client"
	"github.com/pf274/jwt-pizza/internal/config"
	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Control a running pizzamock or pizza-twin through /admin",
	}
	cmd.PersistentFlags().String("url", "", "server base URL (default admin.url)")

	simple := func(use, short string, call func(c *client.AdminClient, cmd *cobra.Command) (string, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := adminClient(cmd)
				if err != nil {
					return err
				}
				body, err := call(c, cmd)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), body)
			},
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "health",
			Short: "Check that the server is up",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := adminClient(cmd)
				if err != nil {
					return err
				}
				ok, msg := c.Health(cmd.Context())
				if !ok {
					return fmt.Errorf("%s is down: %s", c.BaseURL, msg)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is up: %s\n", c.BaseURL, msg)
				return nil
			},
		},
		simple("reset", "Reset state, faults and the request log", func(c *client.AdminClient, cmd *cobra.Command) (string, error) {
			return c.Reset(cmd.Context())
		}),
		simple("state", "Print the server state", func(c *client.AdminClient, cmd *cobra.Command) (string, error) {
			return c.State(cmd.Context())
		}),
		simple("history", "Print what the server answered", func(c *client.AdminClient, cmd *cobra.Command) (string, error) {
			return c.History(cmd.Context())
		}),
		simple("requests", "Print the request log", func(c *client.AdminClient, cmd *cobra.Command) (string, error) {
			return c.Requests(cmd.Context())
		}),
		simple("faults", "List injected faults", func(c *client.AdminClient, cmd *cobra.Command) (string, error) {
			return c.Faults(cmd.Context())
		}),
		newAdminLoadCmd(),
		newAdminFaultCmd(),
		newAdminConfigCmd(),
		newAdminTimeCmd(),
	)
	return cmd
}

func adminClient(cmd *cobra.Command) (*client.AdminClient, error) {
	cfg, err := loadConfig(cmd, map[string]string{"admin.url": "url"})
	if err != nil {
		return nil, err
	}
	return client.New(cfg.Admin.URL), nil
}

// printJSON indents body when it is JSON and prints it as-is otherwise.
func printJSON(w io.Writer, body string) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(body), "", "  "); err != nil {
		_, err = fmt.Fprintln(w, body)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func newAdminLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <state.json>",
		Short: "Replace the server state from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := adminClient(cmd)
			if err != nil {
				return err
			}
			body, err := c.LoadState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
}

func newAdminFaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fault",
		Short: "Inject or remove a fault on an endpoint",
	}

	var f client.Fault
	add := &cobra.Command{
		Use:   "add <path>",
		Short: "Fail requests to <path>, optionally only for one --method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := adminClient(cmd)
			if err != nil {
				return err
			}
			body, err := c.InjectFault(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	add.Flags().StringVar(&f.Method, "method", "", "only fail this HTTP method")
	add.Flags().IntVar(&f.StatusCode, "status", 500, "status code to return")
	add.Flags().StringVar(&f.Body, "body", "", "response body")
	add.Flags().DurationVar(&f.Delay, "delay", 0, "delay before responding")
	add.Flags().Float64Var(&f.Rate, "rate", 1, "fraction of requests to fail")

	rm := &cobra.Command{
		Use:     "rm <path>",
		Aliases: []string{"remove"},
		Short:   "Remove the fault on <path>",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := adminClient(cmd)
			if err != nil {
				return err
			}
			body, err := c.RemoveFault(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}

func newAdminConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change runtime config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := adminClient(cmd)
			if err != nil {
				return err
			}
			body, err := c.Config(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	set := &cobra.Command{
		Use:   "set <key=value>...",
		Short: "Update latency, fail_rate or verbose",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, err := parseConfigUpdates(args)
			if err != nil {
				return err
			}
			c, err := adminClient(cmd)
			if err != nil {
				return err
			}
			body, err := c.UpdateConfig(cmd.Context(), updates)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	cmd.AddCommand(set)
	return cmd
}

// parseConfigUpdates turns key=value pairs into the PATCH /admin/config
// body. latency stays a duration string.
func parseConfigUpdates(args []string) (map[string]any, error) {
	updates := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch key {
		case "latency":
			if _, err := time.ParseDuration(value); err != nil {
				return nil, fmt.Errorf("latency: %w", err)
			}
			updates[key] = value
		case "fail_rate":
			rate, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("fail_rate: %w", err)
			}
			updates[key] = rate
		case "verbose":
			v, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("verbose: %w", err)
			}
			updates[key] = v
		default:
			return nil, fmt.Errorf("unknown config key %q", key)
		}
	}
	return updates, nil
}

func newAdminTimeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "time",
		Short: "Control the simulated clock",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "advance <duration>",
		Short: "Move the simulated clock forward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.ParseDuration(args[0])
			if err != nil {
				return err
			}
			c, err := adminClient(cmd)
			if err != nil {
				return err
			}
			body, err := c.AdvanceTime(cmd.Context(), d)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	})
	return cmd
}

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default " + config.DefaultFile,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFile
			if len(args) == 1 {
				path = args[0]
			}
			if !force && fileExists(path) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
