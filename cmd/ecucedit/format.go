package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

// errNotFormatted is returned by format --check for a file that would
// change.
var errNotFormatted = errors.New("not formatted")

func (c *cli) formatCmd() *cobra.Command {
	var write, diff, check bool
	cmd := &cobra.Command{
		Use:   "format <file>",
		Short: "Reformat an ARXML file",
		Long: `Parse the file and serialize it with the configured indentation.

By default the formatted text is printed. --write saves it in place
(keeping the original encoding and line endings, with a backup when
backups are on), --diff prints the changed lines and --check only reports
whether the file would change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFormat(cmd.OutOrStdout(), args[0], write, diff, check)
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the result back to the file")
	cmd.Flags().BoolVarP(&diff, "diff", "d", false, "print a diff instead of the formatted text")
	cmd.Flags().BoolVar(&check, "check", false, "fail if the file is not formatted")
	cmd.MarkFlagsMutuallyExclusive("write", "check")
	return cmd
}

func (c *cli) runFormat(w io.Writer, path string, write, diff, check bool) error {
	a, err := c.openBatch(path, batchOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	before := a.Buffer().Text()
	if err := a.Format(); err != nil {
		return err
	}
	after := a.Buffer().Text()
	name := a.Document().Name()
	changed := before != after

	if diff {
		writeDiff(w, name, before, after)
	}
	switch {
	case check:
		if changed {
			if !diff {
				fmt.Fprintf(w, "%s: not formatted\n", name)
			}
			return errNotFormatted
		}
		return nil
	case write:
		if !changed {
			fmt.Fprintf(w, "%s: already formatted\n", name)
			return nil
		}
		if err := a.Save(); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: formatted\n", a.Document().Path())
		return nil
	case !diff:
		fmt.Fprint(w, after)
	}
	return nil
}

// writeDiff prints a line diff of before and after with hunk headers and
// no context lines.
func writeDiff(w io.Writer, name, before, after string) {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines)

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)

	bold.Fprintf(w, "--- %s\n+++ %s (formatted)\n", name, name)
	oldLine, newLine := 1, 1
	inHunk := false
	for i, d := range diffs {
		n := len(splitLines(d.Text))
		if d.Type == diffmatchpatch.DiffEqual {
			oldLine += n
			newLine += n
			inHunk = false
			continue
		}
		if !inHunk {
			del, ins := hunkSize(diffs[i:])
			cyan.Fprintf(w, "@@ -%d,%d +%d,%d @@\n", oldLine, del, newLine, ins)
			inHunk = true
		}
		prefix, style := "-", red
		if d.Type == diffmatchpatch.DiffInsert {
			prefix, style = "+", green
			newLine += n
		} else {
			oldLine += n
		}
		for _, l := range splitLines(d.Text) {
			style.Fprintf(w, "%s%s\n", prefix, l)
		}
	}
}

// hunkSize counts deleted and inserted lines up to the next equal run.
func hunkSize(diffs []diffmatchpatch.Diff) (del, ins int) {
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			return del, ins
		case diffmatchpatch.DiffDelete:
			del += len(splitLines(d.Text))
		case diffmatchpatch.DiffInsert:
			ins += len(splitLines(d.Text))
		}
	}
	return del, ins
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
