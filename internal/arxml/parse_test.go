package arxml

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadSample(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/dio.arxml")
	require.NoError(t, err)
	return string(data)
}

func TestParse_Sample(t *testing.T) {
	tree, err := Parse(loadSample(t))
	require.NoError(t, err)

	root := tree.Root()
	assert.Equal(t, "AUTOSAR", tree.Tag(root))
	assert.Equal(t, "http://autosar.org/schema/r4.0", tree.Namespace())

	_, hasXmlns := tree.Attr(root, "xmlns")
	assert.False(t, hasXmlns, "default namespace must be lifted off the root")

	loc, ok := tree.Attr(root, "xsi:schemaLocation")
	assert.True(t, ok)
	assert.Contains(t, loc, "AUTOSAR_4-2-2.xsd")

	attrs := tree.Attrs(root)
	require.Len(t, attrs, 2)
	assert.Equal(t, "xmlns:xsi", attrs[0].Name)
	assert.Equal(t, "xsi:schemaLocation", attrs[1].Name)
}

func TestParse_ShortNames(t *testing.T) {
	tree, err := Parse(loadSample(t))
	require.NoError(t, err)

	var names []string
	for _, id := range tree.Preorder() {
		if tree.Tag(id) == "ECUC-CONTAINER-VALUE" {
			names = append(names, tree.ShortName(id))
		}
	}
	assert.Equal(t, []string{"DioGeneral", "DioConfig", "DioPort_A"}, names)
}

func TestParse_TextAndTail(t *testing.T) {
	tree, err := Parse(`<A>lead<B>b</B>after-b<C/>after-c</A>`)
	require.NoError(t, err)

	root := tree.Root()
	kids := tree.Children(root)
	require.Len(t, kids, 2)

	assert.Equal(t, "lead", tree.Text(root))
	assert.Equal(t, "b", tree.Text(kids[0]))
	assert.Equal(t, "after-b", tree.Tail(kids[0]))
	assert.Equal(t, "after-c", tree.Tail(kids[1]))
}

func TestParse_PrefixedElements(t *testing.T) {
	tree, err := Parse(`<ar:AUTOSAR xmlns:ar="http://autosar.org/schema/r4.0"><ar:X/></ar:AUTOSAR>`)
	require.NoError(t, err)

	root := tree.Root()
	assert.Equal(t, "AUTOSAR", tree.Tag(root))
	assert.Equal(t, "ar", tree.Prefix(root))
	assert.Equal(t, "ar:AUTOSAR", tree.QName(root))
	assert.Empty(t, tree.Namespace(), "prefixed declarations stay attributes")

	v, ok := tree.Attr(root, "xmlns:ar")
	assert.True(t, ok)
	assert.Equal(t, "http://autosar.org/schema/r4.0", v)
}

func TestParse_NonAutosarDefaultNamespaceKept(t *testing.T) {
	tree, err := Parse(`<root xmlns="urn:example"><x/></root>`)
	require.NoError(t, err)

	assert.Empty(t, tree.Namespace())
	v, ok := tree.Attr(tree.Root(), "xmlns")
	assert.True(t, ok)
	assert.Equal(t, "urn:example", v)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t"},
		{"unclosed", "<A><B></A>"},
		{"mismatched", "<A></B>"},
		{"truncated", "<A><B>"},
		{"two roots", "<A/><B/>"},
		{"text outside root", "<A/>junk"},
		{"bare less-than", "<A>1 < 2</A>"},
		{"undefined entity", "<A>&nbsp;</A>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(tt.text)
			assert.Nil(t, tree)
			require.Error(t, err)
			assert.True(t, IsParseError(err), "got %T", err)
		})
	}
}

func TestParse_ErrorLine(t *testing.T) {
	_, err := Parse("<A>\n<B>\n</C>\n</A>")
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
}

func TestParse_DeclaredLatin1(t *testing.T) {
	tree, err := Parse("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<A>Grüße</A>")
	require.NoError(t, err)
	assert.Equal(t, "Grüße", tree.Text(tree.Root()))
}

func TestParse_CommentsDropped(t *testing.T) {
	tree, err := Parse("<A><!-- note --><B/><?pi x?></A>")
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Len())
}
