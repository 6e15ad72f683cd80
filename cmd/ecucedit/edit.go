package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/ecucedit/internal/app"
	"github.com/dshills/ecucedit/internal/arxml"
	"github.com/dshills/ecucedit/internal/ui"
)

func (c *cli) editCmd() *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Open the editor",
		Long: `Open the two-pane editor: the element tree on the left, the text on the
right. Edits in either pane are reflected in the other.

A file that does not exist yet is created empty.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(cmd, args, logFile)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while the editor runs")
	return cmd
}

func (c *cli) runEdit(cmd *cobra.Command, args []string, logFile string) error {
	// The terminal belongs to the editor; logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	c.log.SetOutput(logOut)

	screen, err := ui.NewTerminal()
	if err != nil {
		return fmt.Errorf("failed to create terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	defer screen.Fini()

	u := ui.New(screen, ui.WithTreeWidth(c.cfg.UI.TreeWidth), ui.WithLogger(c.log))
	a, err := app.New(app.Options{
		Config:        c.cfg,
		Logger:        c.log,
		Listener:      u,
		OnFileChanged: u.FileChanged,
		RulesBase:     c.rulesBase(),
	})
	if err != nil {
		return err
	}
	defer a.Close()
	u.Attach(a)

	if len(args) == 1 {
		if err := openForEdit(a, args[0]); err != nil {
			return err
		}
	} else {
		a.NewDocument()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return u.Run(ctx)
}

// openForEdit opens path. Text that does not parse is still edited; a
// missing file starts a scratch document that saves to path.
func openForEdit(a *app.Application, path string) error {
	err := a.Open(path)
	switch {
	case err == nil, arxml.IsParseError(err):
		return nil
	case errors.Is(err, fs.ErrNotExist):
		a.NewDocument()
		return a.SaveAs(path)
	default:
		return err
	}
}
