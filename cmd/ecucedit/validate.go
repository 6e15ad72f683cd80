package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/ecucedit/internal/app"
	"github.com/dshills/ecucedit/internal/arxml"
)

func (c *cli) validateCmd() *cobra.Command {
	var ruleFiles []string
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check an ARXML file",
		Long: `Check the document structure (AUTOSAR root and namespace, at least one
AR-PACKAGE), report values that could not be read cleanly, and run the Lua
rule scripts from the configuration and from --rules.

The command fails when any finding is an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd, args[0], ruleFiles)
		},
	}
	cmd.Flags().StringSliceVarP(&ruleFiles, "rules", "r", nil, "additional Lua rule scripts")
	return cmd
}

func (c *cli) runValidate(cmd *cobra.Command, path string, ruleFiles []string) error {
	a, err := c.openBatch(path, batchOptions{extraRules: ruleFiles})
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.Validate(cmd.Context())
	if rep == nil {
		return err
	}
	writeReport(cmd.OutOrStdout(), a, rep)
	if err != nil {
		return err
	}
	if rep.HasErrors() {
		return errSilent
	}
	return nil
}

// writeReport prints one line per finding, located by line when the
// finding names an element, then the totals.
func writeReport(w io.Writer, a *app.Application, rep *arxml.Report) {
	name := a.Document().Name()
	snap := a.Snapshot()
	buf := a.Buffer()

	styles := map[arxml.Severity]*color.Color{
		arxml.SeverityError:   color.New(color.FgRed),
		arxml.SeverityWarning: color.New(color.FgYellow),
		arxml.SeverityInfo:    color.New(color.FgCyan),
	}
	for _, f := range rep.Findings {
		where := name
		if f.Node != arxml.InvalidNode && snap.Correlator != nil {
			if r, err := snap.Correlator.Locate(f.Node); err == nil {
				where = fmt.Sprintf("%s:%d", name, buf.OffsetToPoint(r.Start).Line+1)
			}
		}
		fmt.Fprintf(w, "%s: ", where)
		styles[f.Severity].Fprint(w, f.Severity)
		fmt.Fprintf(w, ": %s\n", f.Message)
	}

	summary := color.New(color.FgGreen, color.Bold)
	if rep.HasErrors() {
		summary = color.New(color.FgRed, color.Bold)
	}
	summary.Fprintf(w, "%s: %d error(s), %d warning(s), %d info\n", name,
		rep.Count(arxml.SeverityError), rep.Count(arxml.SeverityWarning), rep.Count(arxml.SeverityInfo))
}
