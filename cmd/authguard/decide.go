package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/authguard/guard"
	"github.com/kbukum/authguard/logger"
)

type decideOptions struct {
	authenticated bool
	jsonOutput    bool
}

type decideOutput struct {
	Path     string `json:"path"`
	Class    string `json:"route_class"`
	Skipped  bool   `json:"skipped,omitempty"`
	Decision string `json:"decision"`
	Location string `json:"location,omitempty"`
}

func newDecideCmd(opts *rootOptions) *cobra.Command {
	dopts := &decideOptions{}

	cmd := &cobra.Command{
		Use:   "decide PATH",
		Short: "Show how the guard routes a path",
		Long: `Classify PATH with the configured guard rules and print the decision for an
anonymous caller, or for a signed-in one with --authenticated. No backend is
contacted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAppConfig(opts)
			if err != nil {
				return err
			}
			out, err := decide(cfg.Guard, args[0], dopts.authenticated)
			if err != nil {
				return err
			}
			if dopts.jsonOutput {
				b, err := json.Marshal(out)
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}
			cmd.Printf("path=%s class=%s decision=%s", out.Path, out.Class, out.Decision)
			if out.Location != "" {
				cmd.Printf(" location=%s", out.Location)
			}
			if out.Skipped {
				cmd.Print(" skipped=true")
			}
			cmd.Println()
			return nil
		},
	}

	cmd.Flags().BoolVar(&dopts.authenticated, "authenticated", false, "evaluate as a signed-in caller")
	cmd.Flags().BoolVar(&dopts.jsonOutput, "json", false, "output as JSON")
	return cmd
}

// decide evaluates target against cfg with a fixed-answer backend.
func decide(cfg guard.Config, target string, authenticated bool) (*decideOutput, error) {
	backend := guard.BackendFunc(func(context.Context, []*http.Cookie) (*guard.Identity, []*http.Cookie, error) {
		if authenticated {
			return &guard.Identity{UserID: "cli"}, nil, nil
		}
		return nil, nil, nil
	})
	g, err := guard.New(cfg, backend, guard.WithLogger(logger.NewNop()))
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(target, "/") {
		return nil, fmt.Errorf("path must start with /: %q", target)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}
	res := g.Evaluate(req)
	return &decideOutput{
		Path:     req.URL.Path,
		Class:    res.Class.String(),
		Skipped:  res.Skipped,
		Decision: res.Decision.Kind.String(),
		Location: res.Decision.Location(),
	}, nil
}
