package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (c *cli) headerCmd() *cobra.Command {
	var module, out string
	var noDate bool
	cmd := &cobra.Command{
		Use:   "header <file>",
		Short: "Generate the C configuration header",
		Long: `Render every parameter as a #define. Macro names are
<MODULE>_<PARAMETER> in upper snake case; the module is taken from the
first ECUC-MODULE-CONFIGURATION-VALUES SHORT-NAME unless --module is
given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bo := batchOptions{}
			if noDate {
				bo.now = func() time.Time { return time.Time{} }
			}
			a, err := c.openBatch(args[0], bo)
			if err != nil {
				return err
			}
			defer a.Close()

			text, err := a.Header(module)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			}
			if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
				return err
			}
			c.log.Info("wrote %s (%s)", out, humanize.Bytes(uint64(len(text))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "module prefix (default: detected)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&noDate, "no-date", false, "omit the generation timestamp")
	return cmd
}
