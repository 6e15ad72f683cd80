// Package header renders extracted ECUC parameters as a C configuration
// header of #define lines.
package header

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dshills/ecucedit/internal/arxml"
	"github.com/dshills/ecucedit/internal/extract"
)

// DefaultNameWidth is the column the value starts in, counted from the
// macro name.
const DefaultNameWidth = 40

// ErrNoModule is returned when no module name is given or detected.
var ErrNoModule = errors.New("header: module name required")

// Options controls header generation.
type Options struct {
	// Module is the module prefix, e.g. "DIO". It is upper-snake-cased.
	Module string

	// Source, when set, is named in a comment below the include guard.
	Source string

	// Generated, when non-zero, adds a generation timestamp comment.
	Generated time.Time

	// NameWidth pads macro names; 0 means DefaultNameWidth.
	NameWidth int
}

// Define is one rendered macro.
type Define struct {
	Name      string
	Value     string
	Container string
	Param     string
}

// Defines converts every parameter of cfg into a macro. Names are
// <MODULE>_<PARAM> with the module word stripped from the parameter name.
// When two containers define the same name, the later one is qualified
// with its container: <MODULE>_<CONTAINER>_<PARAM>.
func Defines(cfg *extract.Config, module string) ([]Define, error) {
	prefix := UpperSnake(module)
	if prefix == "" {
		return nil, ErrNoModule
	}
	seen := make(map[string]bool)
	var out []Define
	for _, c := range cfg.Containers {
		for _, p := range c.Params.All() {
			name := prefix + "_" + UpperSnake(stripModule(p.Name, module))
			if seen[name] {
				name = prefix + "_" + UpperSnake(stripModule(c.Name, module)) + "_" + UpperSnake(stripModule(p.Name, module))
			}
			seen[name] = true
			out = append(out, Define{
				Name:      name,
				Value:     FormatValue(p.Value),
				Container: c.Name,
				Param:     p.Name,
			})
		}
	}
	return out, nil
}

// Render produces the header text for cfg.
func Render(cfg *extract.Config, opts Options) (string, error) {
	defs, err := Defines(cfg, opts.Module)
	if err != nil {
		return "", err
	}
	width := opts.NameWidth
	if width <= 0 {
		width = DefaultNameWidth
	}
	guard := Guard(opts.Module)

	var b strings.Builder
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n", guard, guard)
	if opts.Source != "" || !opts.Generated.IsZero() {
		b.WriteByte('\n')
	}
	if opts.Source != "" {
		fmt.Fprintf(&b, "/* Generated from ARXML: %s */\n", comment(opts.Source))
	}
	if !opts.Generated.IsZero() {
		fmt.Fprintf(&b, "/* Generated on: %s */\n", opts.Generated.Format("2006-01-02 15:04:05"))
	}

	container := ""
	for i, d := range defs {
		if i == 0 || d.Container != container {
			container = d.Container
			fmt.Fprintf(&b, "\n/* %s */\n", comment(container))
		}
		fmt.Fprintf(&b, "#define %-*s %s\n", width, d.Name, d.Value)
	}
	fmt.Fprintf(&b, "\n#endif /* %s */\n", guard)
	return b.String(), nil
}

// Guard returns the include guard for module, e.g. DIO_CFG_H_.
func Guard(module string) string {
	return UpperSnake(module) + "_CFG_H_"
}

// FormatValue renders v as a C macro body.
func FormatValue(v extract.Value) string {
	switch v.Kind {
	case extract.KindBoolean:
		if v.Bool {
			return "STD_ON"
		}
		return "STD_OFF"
	case extract.KindNumeric:
		if v.IsFloat {
			s := strconv.FormatFloat(v.Float, 'f', -1, 64)
			if !strings.ContainsAny(s, ".eIN") {
				s += ".0"
			}
			return "(" + s + ")"
		}
		if v.Int < 0 {
			return "(" + strconv.FormatInt(v.Int, 10) + ")"
		}
		return "(" + strconv.FormatInt(v.Int, 10) + "U)"
	case extract.KindEnumeration:
		return "(" + v.Text + ")"
	default:
		return cString(v.Text)
	}
}

// DetectModule returns the SHORT-NAME of the first
// ECUC-MODULE-CONFIGURATION-VALUES element, or "".
func DetectModule(t *arxml.Tree) string {
	if t.Empty() {
		return ""
	}
	for _, id := range t.Preorder() {
		if strings.EqualFold(t.Tag(id), "ECUC-MODULE-CONFIGURATION-VALUES") {
			return t.ShortName(id)
		}
	}
	return ""
}

// UpperSnake converts a CamelCase or mixed identifier to UPPER_SNAKE_CASE.
// Acronyms stay together (GPIOPort becomes GPIO_PORT) and any rune that is
// not a letter or digit becomes a single underscore.
func UpperSnake(s string) string {
	rs := []rune(s)
	var b strings.Builder
	under := true
	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			if !under {
				b.WriteByte('_')
				under = true
			}
			continue
		}
		if unicode.IsUpper(r) && i > 0 && !under {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
		under = false
	}
	return strings.TrimSuffix(b.String(), "_")
}

// stripModule removes a leading module word from name when it is followed
// by an uppercase letter, digit or underscore.
func stripModule(name, module string) string {
	if len(name) <= len(module) || !strings.EqualFold(name[:len(module)], module) {
		return name
	}
	next := rune(name[len(module)])
	if unicode.IsUpper(next) || unicode.IsDigit(next) || next == '_' {
		return strings.TrimLeft(name[len(module):], "_")
	}
	return name
}

func cString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func comment(s string) string {
	return strings.ReplaceAll(s, "*/", "* /")
}
