package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/ecucedit/internal/arxml"
)

// Param is one extracted parameter.
type Param struct {
	Name  string
	Value Value
	Node  arxml.NodeID // the value element
	Tag   string
}

// Params is an insertion-ordered name → Param mapping. A repeated name
// keeps its first position and takes the last value.
type Params struct {
	list  []Param
	index map[string]int
}

func newParams() *Params {
	return &Params{index: make(map[string]int)}
}

func (p *Params) put(param Param) {
	if i, ok := p.index[param.Name]; ok {
		p.list[i] = param
		return
	}
	p.index[param.Name] = len(p.list)
	p.list = append(p.list, param)
}

// Get returns the value of the named parameter.
func (p *Params) Get(name string) (Value, bool) {
	i, ok := p.index[name]
	if !ok {
		return Value{}, false
	}
	return p.list[i].Value, true
}

// Param returns the full entry of the named parameter.
func (p *Params) Param(name string) (Param, bool) {
	i, ok := p.index[name]
	if !ok {
		return Param{}, false
	}
	return p.list[i], true
}

// Len returns the number of distinct names.
func (p *Params) Len() int {
	return len(p.list)
}

// All returns the parameters in document order of first appearance.
func (p *Params) All() []Param {
	out := make([]Param, len(p.list))
	copy(out, p.list)
	return out
}

// Names returns the parameter names in order.
func (p *Params) Names() []string {
	out := make([]string, len(p.list))
	for i, param := range p.list {
		out[i] = param.Name
	}
	return out
}

// ExtractParams scans every descendant of id depth-first and reads each
// recognized value element it finds. Value elements are not descended into;
// unknown tags are passed through. A parameter without a SHORT-NAME gets the
// key "#<n>", n being its position in the scan.
func ExtractParams(t *arxml.Tree, id arxml.NodeID) (*Params, []Warning) {
	p := newParams()
	var warnings []Warning
	t.Walk(id, func(n arxml.NodeID, depth int) bool {
		if depth == 0 {
			return true
		}
		return !readParam(t, n, p, &warnings)
	})
	return p, warnings
}

// readParam reads n into p if n is a value element and reports whether it
// was one.
func readParam(t *arxml.Tree, n arxml.NodeID, p *Params, warnings *[]Warning) bool {
	kind, ok := KindOfTag(t.Tag(n))
	if !ok {
		return false
	}

	name, hasName := arxml.FindShortName(t, n)
	if !hasName {
		name = "#" + strconv.Itoa(p.Len())
		*warnings = append(*warnings, Warning{Node: n, Param: name, Msg: t.Tag(n) + " has no SHORT-NAME"})
	}

	valueNode := t.FindChild(n, arxml.TagValue)
	if valueNode == arxml.InvalidNode {
		*warnings = append(*warnings, Warning{Node: n, Param: name, Msg: "missing VALUE"})
		return true
	}

	raw := t.Text(valueNode)
	v, w := Classify(kind, raw)
	if w != nil {
		w.Node = n
		w.Param = name
		*warnings = append(*warnings, *w)
	}
	p.put(Param{Name: name, Value: v, Node: n, Tag: t.Tag(n)})
	return true
}

// Container is one container value element with the parameters it owns
// directly. Parameters of nested containers belong to those containers.
type Container struct {
	Name          string
	Node          arxml.NodeID
	DefinitionRef string
	Parent        string // enclosing container name, "" at top level
	Params        *Params
}

// Config is the extracted configuration of a whole document.
type Config struct {
	Containers []*Container
	Warnings   []Warning
	byName     map[string]*Container
}

// Extract reads every container of t in document order.
func Extract(t *arxml.Tree) *Config {
	cfg := &Config{byName: make(map[string]*Container)}
	if t.Empty() {
		return cfg
	}

	var visit func(id arxml.NodeID, parent string)
	visit = func(id arxml.NodeID, parent string) {
		if IsContainerTag(t.Tag(id)) {
			c := cfg.readContainer(t, id, parent)
			parent = c.Name
		}
		for _, child := range t.Children(id) {
			visit(child, parent)
		}
	}
	visit(t.Root(), "")
	return cfg
}

func (cfg *Config) readContainer(t *arxml.Tree, id arxml.NodeID, parent string) *Container {
	name, ok := arxml.FindShortName(t, id)
	if !ok {
		name = fmt.Sprintf("#%d", len(cfg.Containers))
		cfg.Warnings = append(cfg.Warnings, Warning{Node: id, Param: name, Msg: "container has no SHORT-NAME"})
	}

	c := &Container{
		Name:          name,
		Node:          id,
		DefinitionRef: defRef(t, id),
		Parent:        parent,
		Params:        newParams(),
	}
	t.Walk(id, func(n arxml.NodeID, depth int) bool {
		if depth == 0 {
			return true
		}
		if IsContainerTag(t.Tag(n)) {
			return false
		}
		return !readParam(t, n, c.Params, &cfg.Warnings)
	})

	cfg.Containers = append(cfg.Containers, c)
	if _, dup := cfg.byName[name]; !dup {
		cfg.byName[name] = c
	}
	return c
}

func defRef(t *arxml.Tree, id arxml.NodeID) string {
	if ref := t.FindChild(id, arxml.TagDefinitionRef); ref != arxml.InvalidNode {
		return strings.TrimSpace(t.Text(ref))
	}
	return ""
}

// Container returns the first container with the given name.
func (cfg *Config) Container(name string) (*Container, bool) {
	c, ok := cfg.byName[name]
	return c, ok
}

// Lookup returns a parameter of a named container.
func (cfg *Config) Lookup(container, param string) (Value, bool) {
	c, ok := cfg.Container(container)
	if !ok {
		return Value{}, false
	}
	return c.Params.Get(param)
}

// ParamCount returns the number of parameters across all containers.
func (cfg *Config) ParamCount() int {
	n := 0
	for _, c := range cfg.Containers {
		n += c.Params.Len()
	}
	return n
}
