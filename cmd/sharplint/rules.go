package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/sharplint/internal/host"
	"github.com/jward/sharplint/internal/host/tsitter"
	"github.com/jward/sharplint/internal/lightup"
	"github.com/jward/sharplint/internal/semantic"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rules and their effective configuration",
	Long:  "Lists every diagnostic id the engine knows with the enablement and severity the ruleset gives it.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return outputError("rules", fmt.Errorf("getting cwd: %w", err))
		}
		engine, _, err := openEngine(cwd)
		if err != nil {
			return outputError("rules", err)
		}
		defer engine.Close()

		infos := engine.Rules()
		out := make([]CLIRule, 0, len(infos))
		for _, r := range infos {
			out = append(out, CLIRule{
				ID:       r.ID,
				Title:    r.Title,
				Category: r.Category,
				Enabled:  r.Enabled,
				Severity: r.Severity.String(),
				Scripted: r.Scripted,
				Fixable:  r.Fixable,
			})
		}
		total := len(out)
		return outputResult(CLIResult{Command: "rules", Results: out, TotalCount: &total})
	},
}

var flagNoSemantic bool

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Show which syntax and operation shapes the host provides",
	Long: `Probes the C# grammar and the semantic binder the way the engine does at
start-up and prints, for every shape, the host kinds implementing it.
Shapes the host lacks are listed as absent; rules needing them do not run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var caps host.SemanticCapabilities
		if !flagNoSemantic {
			caps = semantic.NewProvider(nil).Capabilities()
		}
		p, err := lightup.Probe(tsitter.CSharp(), caps)
		if err != nil {
			return outputError("probe", fmt.Errorf("probing: %w", err))
		}
		return outputResult(CLIResult{Command: "probe", Results: profileToCLI(p)})
	},
}

func init() {
	probeCmd.Flags().BoolVar(&flagNoSemantic, "no-semantic", false, "probe as a host without a semantic provider")
}

// profileToCLI lists every shape of p in declaration order.
func profileToCLI(p *lightup.Profile) CLIProfile {
	out := CLIProfile{
		Language:    p.Language(),
		Fingerprint: p.Fingerprint(),
		Shapes:      []CLIShape{},
	}
	for _, s := range lightup.Shapes() {
		cs := CLIShape{
			Name:      s.String(),
			Operation: s.IsOperation(),
			Present:   p.Has(s),
			Kinds:     p.Kinds(s),
		}
		if parent := s.Parent(); parent != lightup.ShapeInvalid {
			cs.Parent = parent.String()
		}
		out.Shapes = append(out.Shapes, cs)
	}
	for _, s := range p.Absent() {
		out.Absent = append(out.Absent, s.String())
	}
	return out
}
