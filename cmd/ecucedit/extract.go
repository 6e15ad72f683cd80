package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/ecucedit/internal/extract"
)

// Output formats of the extract command.
const (
	outputTable = "table"
	outputYAML  = "yaml"
	outputJSON  = "json"
)

func (c *cli) extractCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the typed parameter values",
		Long: `Read every container and its parameters with their typed values
(boolean, numeric, text, enumeration) in document order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openBatch(args[0], batchOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.Snapshot().Config
			for _, w := range cfg.Warnings {
				c.log.Warn("%s", w)
			}
			return writeConfig(cmd.OutOrStdout(), cfg, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format (table, yaml, json)")
	return cmd
}

func writeConfig(w io.Writer, cfg *extract.Config, output string) error {
	switch output {
	case outputTable:
		writeTable(w, cfg)
		return nil
	case outputYAML:
		return writeYAML(w, cfg)
	case outputJSON:
		return writeJSON(w, cfg)
	default:
		return fmt.Errorf("unknown output format %q (want table, yaml or json)", output)
	}
}

func writeTable(w io.Writer, cfg *extract.Config) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Container", "Parameter", "Kind", "Value"})
	n := 0
	for _, c := range cfg.Containers {
		for _, p := range c.Params.All() {
			tbl.AppendRow(table.Row{c.Name, p.Name, p.Value.Kind, p.Value})
			n++
		}
	}
	tbl.AppendFooter(table.Row{"", fmt.Sprintf("%d parameters", n), "", ""})
	tbl.Render()
}

// writeYAML maps container names to their parameters, both in document
// order.
func writeYAML(w io.Writer, cfg *extract.Config) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range cfg.Containers {
		params := &yaml.Node{Kind: yaml.MappingNode}
		for _, p := range c.Params.All() {
			v := &yaml.Node{}
			if err := v.Encode(p.Value.Interface()); err != nil {
				return err
			}
			params.Content = append(params.Content, scalar(p.Name), v)
		}
		root.Content = append(root.Content, scalar(c.Name), params)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return err
	}
	return enc.Close()
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

type jsonParam struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

type jsonContainer struct {
	Name          string      `json:"name"`
	Parent        string      `json:"parent,omitempty"`
	DefinitionRef string      `json:"definition_ref,omitempty"`
	Params        []jsonParam `json:"params"`
}

func writeJSON(w io.Writer, cfg *extract.Config) error {
	out := make([]jsonContainer, 0, len(cfg.Containers))
	for _, c := range cfg.Containers {
		jc := jsonContainer{
			Name:          c.Name,
			Parent:        c.Parent,
			DefinitionRef: c.DefinitionRef,
			Params:        []jsonParam{},
		}
		for _, p := range c.Params.All() {
			jc.Params = append(jc.Params, jsonParam{Name: p.Name, Kind: p.Value.Kind.String(), Value: p.Value.Interface()})
		}
		out = append(out, jc)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
