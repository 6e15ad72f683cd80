package arxml

import (
	"fmt"
	"strings"
)

// Severity ranks a validation finding.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Finding is one validation result.
type Finding struct {
	Severity Severity
	Message  string
	Node     NodeID
}

// Report collects findings for a document.
type Report struct {
	Findings []Finding
	Counts   map[string]int
}

// Add appends a finding.
func (r *Report) Add(sev Severity, node NodeID, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Node:     node,
	})
}

// HasErrors reports whether any finding is an error.
func (r *Report) HasErrors() bool {
	return r.Count(SeverityError) > 0
}

// Count returns the number of findings with the given severity.
func (r *Report) Count(sev Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

// Validate performs the structural checks an ECUC file is expected to pass:
// an AUTOSAR root, the AUTOSAR namespace, and at least one AR-PACKAGE. It
// also counts AR-PACKAGES, AR-PACKAGE and SHORT-NAME elements. It is not a
// schema validation.
func Validate(t *Tree) *Report {
	r := &Report{Counts: make(map[string]int)}
	if t.Empty() {
		r.Add(SeverityError, InvalidNode, "document has no root element")
		return r
	}

	root := t.Root()
	if !strings.EqualFold(t.Tag(root), TagAutosar) {
		r.Add(SeverityWarning, root, "root element is %s, expected %s", t.Tag(root), TagAutosar)
	}

	ns := t.Namespace()
	if ns == "" {
		if v, ok := t.Attr(root, "xmlns"); ok {
			ns = v
		}
	}
	if IsAutosarNamespace(ns) {
		r.Add(SeverityInfo, root, "AUTOSAR namespace detected: %s", ns)
	} else {
		r.Add(SeverityWarning, root, "AUTOSAR namespace not declared")
	}

	for _, id := range t.Preorder() {
		switch strings.ToUpper(t.Tag(id)) {
		case TagARPackages:
			r.Counts[TagARPackages]++
		case TagARPackage:
			r.Counts[TagARPackage]++
		case TagShortName:
			r.Counts[TagShortName]++
		}
	}

	r.Add(SeverityInfo, InvalidNode, "%d AR-PACKAGES, %d AR-PACKAGE, %d SHORT-NAME elements",
		r.Counts[TagARPackages], r.Counts[TagARPackage], r.Counts[TagShortName])
	if r.Counts[TagARPackage] == 0 {
		r.Add(SeverityWarning, root, "no AR-PACKAGE elements found")
	}
	return r
}
