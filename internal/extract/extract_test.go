package extract

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ecucedit/internal/arxml"
)

func sampleTree(t *testing.T) *arxml.Tree {
	t.Helper()
	data, err := os.ReadFile("../arxml/testdata/dio.arxml")
	require.NoError(t, err)
	tree, err := arxml.Parse(string(data))
	require.NoError(t, err)
	return tree
}

func TestParseBool(t *testing.T) {
	truthy := []string{"true", "TRUE", "True", "1", "on", "ON", "std_on", "STD_ON", "  true\n"}
	falsy := []string{"false", "0", "off", "STD_OFF", "yes", "y", "enabled", "", "2", "truee"}

	for _, s := range truthy {
		assert.True(t, ParseBool(s), "%q", s)
	}
	for _, s := range falsy {
		assert.False(t, ParseBool(s), "%q", s)
	}
}

func TestKindOfTag(t *testing.T) {
	tests := []struct {
		tag  string
		kind Kind
		ok   bool
	}{
		{"ECUC-BOOLEAN-PARAM-VALUE", KindBoolean, true},
		{"boolean-param-value", KindBoolean, true},
		{"ECUC-NUMERICAL-PARAM-VALUE", KindNumeric, true},
		{"ECUC-TEXTUAL-PARAM-VALUE", KindText, true},
		{"ECUC-ENUMERATION-PARAM-VALUE", KindEnumeration, true},
		{"ar:ECUC-ENUMERATION-PARAM-VALUE", KindEnumeration, true},
		{"ECUC-REFERENCE-VALUE", 0, false},
		{"XBOOLEAN-PARAM-VALUE", 0, false},
		{"PARAMETER-VALUES", 0, false},
	}

	for _, tt := range tests {
		kind, ok := KindOfTag(tt.tag)
		assert.Equal(t, tt.ok, ok, tt.tag)
		assert.Equal(t, tt.kind, kind, tt.tag)
	}
}

func TestClassify(t *testing.T) {
	v, w := Classify(KindNumeric, " 42 ")
	assert.Nil(t, w)
	assert.Equal(t, Value{Kind: KindNumeric, Int: 42}, v)

	v, w = Classify(KindNumeric, "-7")
	assert.Nil(t, w)
	assert.Equal(t, int64(-7), v.Int)

	v, w = Classify(KindNumeric, "2.5")
	assert.Nil(t, w)
	assert.True(t, v.IsFloat)
	assert.InDelta(t, 2.5, v.Float, 1e-9)

	v, w = Classify(KindNumeric, "abc")
	require.NotNil(t, w)
	assert.Equal(t, Value{Kind: KindNumeric}, v)
	assert.Contains(t, w.Msg, "abc")

	v, _ = Classify(KindBoolean, "STD_ON")
	assert.True(t, v.Bool)

	v, _ = Classify(KindEnumeration, " DIO_OUTPUT ")
	assert.Equal(t, "DIO_OUTPUT", v.Text)
}

func TestExtractParams_Sample(t *testing.T) {
	tree := sampleTree(t)

	params, warnings := ExtractParams(tree, tree.Root())
	assert.Equal(t, []string{
		"DioDevErrorDetect", "DioVersionInfoApi", "DioFlipChannelApi",
		"DioPortId", "DioPortName", "DioPortDirection", "DioPortSpeed",
	}, params.Names())

	// A numerical parameter holding "true" falls back to 0 with a warning.
	v, ok := params.Get("DioDevErrorDetect")
	require.True(t, ok)
	assert.Equal(t, KindNumeric, v.Kind)
	assert.Equal(t, int64(0), v.Int)
	require.Len(t, warnings, 1)
	assert.Equal(t, "DioDevErrorDetect", warnings[0].Param)

	v, _ = params.Get("DioVersionInfoApi")
	assert.Equal(t, Value{Kind: KindBoolean, Bool: true}, v)
	v, _ = params.Get("DioFlipChannelApi")
	assert.Equal(t, Value{Kind: KindBoolean, Bool: false}, v)
	v, _ = params.Get("DioPortName")
	assert.Equal(t, Value{Kind: KindText, Text: "GPIOA"}, v)
}

func TestExtractParams_Edges(t *testing.T) {
	tree := arxml.MustParse(`<C>
		<GROUP>
			<ECUC-NUMERICAL-PARAM-VALUE><VALUE>3</VALUE></ECUC-NUMERICAL-PARAM-VALUE>
			<ECUC-BOOLEAN-PARAM-VALUE><SHORT-NAME>NoValue</SHORT-NAME></ECUC-BOOLEAN-PARAM-VALUE>
			<ECUC-REFERENCE-VALUE><SHORT-NAME>Ref</SHORT-NAME><VALUE>/x</VALUE></ECUC-REFERENCE-VALUE>
			<ECUC-TEXTUAL-PARAM-VALUE><SHORT-NAME>Dup</SHORT-NAME><VALUE>first</VALUE></ECUC-TEXTUAL-PARAM-VALUE>
			<ECUC-TEXTUAL-PARAM-VALUE><SHORT-NAME>Dup</SHORT-NAME><VALUE>second</VALUE></ECUC-TEXTUAL-PARAM-VALUE>
		</GROUP>
	</C>`)

	params, warnings := ExtractParams(tree, tree.Root())
	assert.Equal(t, []string{"#0", "Dup"}, params.Names())

	v, _ := params.Get("#0")
	assert.Equal(t, int64(3), v.Int)
	v, _ = params.Get("Dup")
	assert.Equal(t, "second", v.Text)

	_, ok := params.Get("Ref")
	assert.False(t, ok, "unknown value tags are ignored")
	assert.Len(t, warnings, 2)
}

func TestExtract_Containers(t *testing.T) {
	cfg := Extract(sampleTree(t))

	var names []string
	for _, c := range cfg.Containers {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"DioGeneral", "DioConfig", "DioPort_A"}, names)

	general, ok := cfg.Container("DioGeneral")
	require.True(t, ok)
	assert.Equal(t, 3, general.Params.Len())
	assert.Equal(t, "/AUTOSAR/EcucDefs/Dio/DioGeneral", general.DefinitionRef)
	assert.Empty(t, general.Parent)

	outer, _ := cfg.Container("DioConfig")
	assert.Zero(t, outer.Params.Len(), "nested container params belong to the nested container")

	port, _ := cfg.Container("DioPort_A")
	assert.Equal(t, "DioConfig", port.Parent)
	assert.Equal(t, 4, port.Params.Len())

	v, ok := cfg.Lookup("DioPort_A", "DioPortSpeed")
	require.True(t, ok)
	assert.Equal(t, "2.5", v.String())
	assert.Equal(t, 7, cfg.ParamCount())
	assert.Len(t, cfg.Warnings, 1)
}

func TestExtract_EmptyTree(t *testing.T) {
	cfg := Extract(arxml.New())
	assert.Empty(t, cfg.Containers)
	_, ok := cfg.Container("x")
	assert.False(t, ok)
}

func TestValue_Interface(t *testing.T) {
	assert.Equal(t, true, Value{Kind: KindBoolean, Bool: true}.Interface())
	assert.Equal(t, int64(5), Value{Kind: KindNumeric, Int: 5}.Interface())
	assert.Equal(t, 1.5, Value{Kind: KindNumeric, Float: 1.5, IsFloat: true}.Interface())
	assert.Equal(t, "X", Value{Kind: KindEnumeration, Text: "X"}.Interface())
}
