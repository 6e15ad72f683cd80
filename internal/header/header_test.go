package header

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ecucedit/internal/arxml"
	"github.com/dshills/ecucedit/internal/extract"
)

func loadSample(t *testing.T) *arxml.Tree {
	t.Helper()
	data, err := os.ReadFile("../arxml/testdata/dio.arxml")
	require.NoError(t, err)
	tree, err := arxml.Parse(string(data))
	require.NoError(t, err)
	return tree
}

func TestUpperSnake(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"DioPortId", "DIO_PORT_ID"},
		{"DioPort_A", "DIO_PORT_A"},
		{"GPIOAPort", "GPIOA_PORT"},
		{"Dio", "DIO"},
		{"dio", "DIO"},
		{"Channel12Level", "CHANNEL12_LEVEL"},
		{"  spaced name-x ", "SPACED_NAME_X"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UpperSnake(tt.in), tt.in)
	}
}

func TestStripModule(t *testing.T) {
	assert.Equal(t, "DevErrorDetect", stripModule("DioDevErrorDetect", "DIO"))
	assert.Equal(t, "Port_A", stripModule("Dio_Port_A", "Dio"))
	assert.Equal(t, "Dioxide", stripModule("Dioxide", "Dio"))
	assert.Equal(t, "Dio", stripModule("Dio", "Dio"))
	assert.Equal(t, "CanSpeed", stripModule("CanSpeed", "Dio"))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    extract.Value
		want string
	}{
		{extract.Value{Kind: extract.KindBoolean, Bool: true}, "STD_ON"},
		{extract.Value{Kind: extract.KindBoolean}, "STD_OFF"},
		{extract.Value{Kind: extract.KindNumeric, Int: 42}, "(42U)"},
		{extract.Value{Kind: extract.KindNumeric, Int: -3}, "(-3)"},
		{extract.Value{Kind: extract.KindNumeric, Float: 2.5, IsFloat: true}, "(2.5)"},
		{extract.Value{Kind: extract.KindNumeric, Float: 2, IsFloat: true}, "(2.0)"},
		{extract.Value{Kind: extract.KindEnumeration, Text: "DIO_OUTPUT"}, "(DIO_OUTPUT)"},
		{extract.Value{Kind: extract.KindText, Text: `say "hi"\`}, `"say \"hi\"\\"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.v))
	}
}

func TestRender_Sample(t *testing.T) {
	cfg := extract.Extract(loadSample(t))
	got, err := Render(cfg, Options{Module: "Dio"})
	require.NoError(t, err)

	want := `#ifndef DIO_CFG_H_
#define DIO_CFG_H_

/* DioGeneral */
#define DIO_DEV_ERROR_DETECT                     (0U)
#define DIO_VERSION_INFO_API                     STD_ON
#define DIO_FLIP_CHANNEL_API                     STD_OFF

/* DioPort_A */
#define DIO_PORT_ID                              (0U)
#define DIO_PORT_NAME                            "GPIOA"
#define DIO_PORT_DIRECTION                       (DIO_OUTPUT)
#define DIO_PORT_SPEED                           (2.5)

#endif /* DIO_CFG_H_ */
`
	assert.Equal(t, want, got)
}

func TestRender_Comments(t *testing.T) {
	cfg := extract.Extract(arxml.MustParse(`<M><ECUC-CONTAINER-VALUE><SHORT-NAME>G</SHORT-NAME>` +
		`<ECUC-BOOLEAN-PARAM-VALUE><SHORT-NAME>X</SHORT-NAME><VALUE>on</VALUE></ECUC-BOOLEAN-PARAM-VALUE>` +
		`</ECUC-CONTAINER-VALUE></M>`))
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	got, err := Render(cfg, Options{Module: "can", Source: "can.arxml", Generated: at, NameWidth: 8})
	require.NoError(t, err)
	assert.Equal(t, `#ifndef CAN_CFG_H_
#define CAN_CFG_H_

/* Generated from ARXML: can.arxml */
/* Generated on: 2024-03-01 09:30:00 */

/* G */
#define CAN_X    STD_ON

#endif /* CAN_CFG_H_ */
`, got)
}

func TestDefines_Collision(t *testing.T) {
	cfg := extract.Extract(arxml.MustParse(`<M>
<ECUC-CONTAINER-VALUE><SHORT-NAME>DioPort_A</SHORT-NAME>
  <ECUC-NUMERICAL-PARAM-VALUE><SHORT-NAME>DioPortId</SHORT-NAME><VALUE>0</VALUE></ECUC-NUMERICAL-PARAM-VALUE>
</ECUC-CONTAINER-VALUE>
<ECUC-CONTAINER-VALUE><SHORT-NAME>DioPort_B</SHORT-NAME>
  <ECUC-NUMERICAL-PARAM-VALUE><SHORT-NAME>DioPortId</SHORT-NAME><VALUE>1</VALUE></ECUC-NUMERICAL-PARAM-VALUE>
</ECUC-CONTAINER-VALUE>
</M>`))

	defs, err := Defines(cfg, "DIO")
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "DIO_PORT_ID", defs[0].Name)
	assert.Equal(t, "DIO_PORT_B_PORT_ID", defs[1].Name)
	assert.Equal(t, "(1U)", defs[1].Value)
	assert.Equal(t, "DioPort_B", defs[1].Container)
}

func TestRender_NoModule(t *testing.T) {
	_, err := Render(&extract.Config{}, Options{})
	assert.ErrorIs(t, err, ErrNoModule)

	_, err = Render(&extract.Config{}, Options{Module: "__"})
	assert.ErrorIs(t, err, ErrNoModule)
}

func TestRender_Empty(t *testing.T) {
	got, err := Render(extract.Extract(arxml.New()), Options{Module: "Dio"})
	require.NoError(t, err)
	assert.Equal(t, "#ifndef DIO_CFG_H_\n#define DIO_CFG_H_\n\n#endif /* DIO_CFG_H_ */\n", got)
}

func TestDetectModule(t *testing.T) {
	assert.Equal(t, "Dio", DetectModule(loadSample(t)))
	assert.Equal(t, "", DetectModule(arxml.MustParse("<A/>")))
	assert.Equal(t, "", DetectModule(arxml.New()))
}
