package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	gmt "go-method-tracer"
	"go-method-tracer/internal/config"
	"go-method-tracer/internal/program"
	"go-method-tracer/internal/rules"
)

type selectFlags struct {
	packages     []string
	packageGlobs []string
	classGlobs   []string
	methodGlobs  []string
	methodRegexp string
	excludeFuncs []string
	paramTypes   []string
	exported     bool
	follow       int
	json         bool
}

// rule turns the selection flags into a rule, or nil when none was given.
func (f *selectFlags) rule() *rules.File {
	r := rules.Rule{
		Name:     "flags",
		Packages: f.packages,
		Filters: rules.Filters{
			Packages: f.packageGlobs,
			Classes:  f.classGlobs,
			Methods:  f.methodGlobs,
			Params:   f.paramTypes,
			Exported: f.exported,
			Regexp:   rules.Regexps{Methods: f.methodRegexp},
			Exclude:  rules.Exclusions{Methods: f.excludeFuncs},
		},
		FollowCalls: f.follow,
	}
	if len(r.Packages) == 0 && len(r.Filters.Packages) == 0 && len(r.Filters.Classes) == 0 &&
		len(r.Filters.Methods) == 0 && len(r.Filters.Params) == 0 && !r.Filters.Exported && r.FollowCalls == 0 &&
		f.methodRegexp == "" && len(f.excludeFuncs) == 0 {
		return nil
	}
	return &rules.File{Rules: []rules.Rule{r}}
}

type target struct {
	Symbol   string `json:"symbol"`
	Position string `json:"position,omitempty"`
}

func newSelectCmd(a *app) *cobra.Command {
	f := &selectFlags{}
	cmd := &cobra.Command{
		Use:   "select",
		Short: "List the functions a selection resolves to",
		Long: `Resolve a selection against the project and print the runtime symbol of
every target. The selection comes from the selection flags; without any, from
the rules file (--rules or project.rules); without one, it is every function
of the project.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, config.FlagDir, config.FlagRules, config.FlagTests); err != nil {
				return err
			}
			file := f.rule()
			if file == nil && a.cfg.Project.Rules == "" {
				file = &rules.File{Rules: []rules.Rule{{Name: "all"}}}
			}
			opts := []gmt.Option{gmt.WithConfig(a.cfg), gmt.WithLogger(a.logger)}
			if file != nil {
				opts = append(opts, gmt.WithRules(file))
			}
			s, err := gmt.Open(cmd.Context(), opts...)
			if err != nil {
				return err
			}
			return printTargets(cmd, s.Targets(), f.json)
		},
	}
	config.AddStringFlag(cmd, config.FlagDir)
	config.AddStringFlag(cmd, config.FlagRules)
	config.AddBoolFlag(cmd, config.FlagTests)
	cmd.Flags().StringSliceVarP(&f.packages, "package", "p", nil, "import paths to select from")
	cmd.Flags().StringSliceVar(&f.packageGlobs, "package-glob", nil, "glob patterns on import paths")
	cmd.Flags().StringSliceVar(&f.classGlobs, "type-glob", nil, "glob patterns on type names")
	cmd.Flags().StringSliceVarP(&f.methodGlobs, "func-glob", "f", nil, "glob patterns on function names")
	cmd.Flags().StringVar(&f.methodRegexp, "func-regexp", "", "regular expression on function names")
	cmd.Flags().StringSliceVar(&f.excludeFuncs, "exclude-func", nil, "glob patterns on function names to drop")
	cmd.Flags().StringSliceVar(&f.paramTypes, "param-type", nil, "keep functions with a parameter of a matching type")
	cmd.Flags().BoolVar(&f.exported, "exported", false, "keep only exported types and functions")
	cmd.Flags().IntVar(&f.follow, "follow", 0, "also select callees, up to this many levels deep")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON")
	return cmd
}

func printTargets(cmd *cobra.Command, ms []program.Method, asJSON bool) error {
	out := cmd.OutOrStdout()
	targets := make([]target, len(ms))
	for i, m := range ms {
		targets[i] = target{Symbol: m.Symbol()}
		if fn, ok := m.(*program.Func); ok {
			targets[i].Position = fn.Position().String()
		}
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(targets)
	}
	for _, t := range targets {
		if _, err := fmt.Fprintln(out, t.Symbol); err != nil {
			return err
		}
	}
	return nil
}
