// Package extract reads typed ECUC parameter values out of an arxml.Tree.
//
// A parameter is a value element (…-BOOLEAN-PARAM-VALUE,
// …-NUMERICAL-PARAM-VALUE, …-TEXTUAL-PARAM-VALUE,
// …-ENUMERATION-PARAM-VALUE) with a SHORT-NAME and a VALUE child. The kind
// comes from the value element's tag alone; nothing is inferred from the
// text.
package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/ecucedit/internal/arxml"
)

// Kind is the type of a parameter value.
type Kind uint8

const (
	KindBoolean Kind = iota + 1
	KindNumeric
	KindText
	KindEnumeration
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindEnumeration:
		return "enumeration"
	default:
		return "unknown"
	}
}

var tagSuffixes = []struct {
	suffix string
	kind   Kind
}{
	{"BOOLEAN-PARAM-VALUE", KindBoolean},
	{"NUMERICAL-PARAM-VALUE", KindNumeric},
	{"TEXTUAL-PARAM-VALUE", KindText},
	{"ENUMERATION-PARAM-VALUE", KindEnumeration},
}

// KindOfTag classifies a value element by its local tag, case-insensitively.
// The tag must be one of the four value names, optionally preceded by a
// hyphenated qualifier (ECUC-BOOLEAN-PARAM-VALUE).
func KindOfTag(tag string) (Kind, bool) {
	u := strings.ToUpper(arxml.LocalName(tag))
	for _, s := range tagSuffixes {
		if u == s.suffix || strings.HasSuffix(u, "-"+s.suffix) {
			return s.kind, true
		}
	}
	return 0, false
}

// IsContainerTag reports whether tag names a container value element.
func IsContainerTag(tag string) bool {
	u := strings.ToUpper(arxml.LocalName(tag))
	return u == "CONTAINER-VALUE" || strings.HasSuffix(u, "-CONTAINER-VALUE")
}

// Value is a typed parameter value. Only the fields matching Kind are
// meaningful; numeric values set Int or, when IsFloat, Float.
type Value struct {
	Kind    Kind
	Bool    bool
	Int     int64
	Float   float64
	IsFloat bool
	Text    string
}

// String renders the value for display.
func (v Value) String() string {
	switch v.Kind {
	case KindBoolean:
		return strconv.FormatBool(v.Bool)
	case KindNumeric:
		if v.IsFloat {
			return strconv.FormatFloat(v.Float, 'g', -1, 64)
		}
		return strconv.FormatInt(v.Int, 10)
	default:
		return v.Text
	}
}

// Interface returns the value as a plain Go value (bool, int64, float64 or
// string).
func (v Value) Interface() any {
	switch v.Kind {
	case KindBoolean:
		return v.Bool
	case KindNumeric:
		if v.IsFloat {
			return v.Float
		}
		return v.Int
	default:
		return v.Text
	}
}

var trueWords = map[string]bool{"true": true, "1": true, "on": true, "std_on": true}

// ParseBool is true exactly for "true", "1", "on" and "std_on", compared
// case-insensitively after trimming.
func ParseBool(raw string) bool {
	return trueWords[strings.ToLower(strings.TrimSpace(raw))]
}

// Warning records a value that was accepted leniently or skipped.
type Warning struct {
	Node  arxml.NodeID
	Param string
	Raw   string
	Msg   string
}

func (w Warning) String() string {
	if w.Param != "" {
		return fmt.Sprintf("%s: %s", w.Param, w.Msg)
	}
	return w.Msg
}

// Classify converts raw text into a Value of the given kind. A numeric text
// that is neither an integer nor a float becomes 0 and yields a warning.
func Classify(kind Kind, raw string) (Value, *Warning) {
	s := strings.TrimSpace(raw)
	switch kind {
	case KindBoolean:
		return Value{Kind: KindBoolean, Bool: ParseBool(s)}, nil
	case KindNumeric:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Value{Kind: KindNumeric, Int: i}, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Value{Kind: KindNumeric, Float: f, IsFloat: true}, nil
		}
		return Value{Kind: KindNumeric}, &Warning{Raw: raw, Msg: fmt.Sprintf("numeric value %q is not a number, using 0", s)}
	case KindEnumeration:
		return Value{Kind: KindEnumeration, Text: s}, nil
	default:
		return Value{Kind: KindText, Text: s}, nil
	}
}
