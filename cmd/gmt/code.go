package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"go-method-tracer/internal/config"
	"go-method-tracer/internal/program"
)

func (a *app) loadProgram(cmd *cobra.Command) (*program.Program, error) {
	return program.Load(cmd.Context(), program.LoadConfig{
		Dir:      a.cfg.Project.Dir,
		Patterns: a.cfg.Project.Patterns,
		Tests:    a.cfg.Project.Tests,
		Logger:   a.logger,
	})
}

func newCodeCmd(a *app) *cobra.Command {
	var typeName bool
	cmd := &cobra.Command{
		Use:   "code <symbol>",
		Short: "Print the source of a function or type",
		Long: `Print the formatted declaration of a function, given its runtime symbol
(e.g. 'example.com/shop/cart.(*Cart).Add'), or with --type of a named type
given as 'importpath.Type'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, config.FlagDir, config.FlagTests); err != nil {
				return err
			}
			prog, err := a.loadProgram(cmd)
			if err != nil {
				return err
			}

			var src string
			if typeName {
				src, err = typeSource(prog, args[0])
			} else {
				var fn *program.Func
				if fn, err = prog.Lookup(args[0]); err == nil {
					src, err = fn.Source()
				}
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), src)
			return err
		},
	}
	config.AddStringFlag(cmd, config.FlagDir)
	config.AddBoolFlag(cmd, config.FlagTests)
	cmd.Flags().BoolVar(&typeName, "type", false, "argument names a type")
	return cmd
}

func typeSource(prog *program.Program, name string) (string, error) {
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return "", fmt.Errorf("type %q: want importpath.Type", name)
	}
	pkg, err := prog.Package(name[:i])
	if err != nil {
		return "", err
	}
	t, err := pkg.Type(name[i+1:])
	if err != nil {
		return "", err
	}
	return t.Source()
}

func newCallsCmd(a *app) *cobra.Command {
	var (
		depth  int
		asJSON bool
		source bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "calls <symbol>",
		Short: "List the functions a function calls",
		Long: `List the functions of the project that <symbol> calls, up to --depth levels.
With --source, print the declaration of the function and of every callee
instead, as one report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, config.FlagDir, config.FlagTests); err != nil {
				return err
			}
			prog, err := a.loadProgram(cmd)
			if err != nil {
				return err
			}
			fn, err := prog.Lookup(args[0])
			if err != nil {
				return err
			}
			callees := prog.Callees(fn, depth)
			a.logger.Debug("callees resolved", "symbol", fn.Symbol(), "depth", depth, "count", len(callees))
			if !source {
				return printTargets(cmd, callees, asJSON)
			}

			report, err := sourceReport(fn, callees)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), report)
				return err
			}
			if err := os.WriteFile(output, []byte(report), 0o644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			cmd.Printf("wrote %s\n", output)
			return nil
		},
	}
	config.AddStringFlag(cmd, config.FlagDir)
	config.AddBoolFlag(cmd, config.FlagTests)
	cmd.Flags().IntVar(&depth, "depth", 1, "call levels to follow")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&source, "source", false, "print declarations instead of symbols")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the --source report to a file")
	return cmd
}

// sourceReport joins the declarations of fn and its callees, each under a
// header naming its symbol and position.
func sourceReport(fn *program.Func, callees []program.Method) (string, error) {
	var b strings.Builder
	for _, m := range append([]program.Method{fn}, callees...) {
		f, ok := m.(*program.Func)
		if !ok {
			continue
		}
		src, err := f.Source()
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "// %s (%s)\n%s\n\n", f.Symbol(), f.Position(), src)
	}
	return b.String(), nil
}
