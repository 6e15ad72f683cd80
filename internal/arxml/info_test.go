package arxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindShortName(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want string
		ok   bool
	}{
		{"direct child", `<A><SHORT-NAME> Foo </SHORT-NAME></A>`, "Foo", true},
		{"lowercase tag", `<A><short-name>foo</short-name></A>`, "foo", true},
		{"grandchild only", `<A><B><SHORT-NAME>deep</SHORT-NAME></B></A>`, "", false},
		{"container short-name", `<A><SHORT-NAME><X/></SHORT-NAME></A>`, "", false},
		{"blank", `<A><SHORT-NAME>  </SHORT-NAME></A>`, "", false},
		{"prefixed", `<a:A xmlns:a="urn:x"><a:SHORT-NAME>P</a:SHORT-NAME></a:A>`, "P", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := MustParse(tt.xml)
			got, ok := FindShortName(tree, tree.Root())
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindContainer, KindOf("ECUC-CONTAINER-VALUE"))
	assert.Equal(t, KindParameter, KindOf("ECUC-NUMERICAL-PARAM-VALUE"))
	assert.Equal(t, KindModule, KindOf("ECUC-MODULE-CONFIGURATION-VALUES"))
	assert.Equal(t, KindConfiguration, KindOf("ecuc-config"))
	assert.Equal(t, KindElements, KindOf("ELEMENTS"))
	assert.Equal(t, KindPackages, KindOf("AR-PACKAGES"))
	assert.Equal(t, KindElement, KindOf("SHORT-NAME"))
	assert.Equal(t, "Container", KindContainer.String())
}

func TestInfo(t *testing.T) {
	tree := MustParse(loadSample(t))

	var general NodeID
	for _, id := range tree.Preorder() {
		if tree.ShortName(id) == "DioGeneral" {
			general = id
			break
		}
	}
	require.NotEqual(t, InvalidNode, general)

	info, err := tree.Info(general)
	require.NoError(t, err)
	assert.Equal(t, "ECUC-CONTAINER-VALUE", info.Tag)
	assert.Equal(t, KindContainer, info.Kind)
	assert.Equal(t, "DioGeneral", info.ShortName)
	assert.Equal(t, "/AUTOSAR/EcucDefs/Dio/DioGeneral", info.DefinitionRef)
	assert.Equal(t, "true", info.Value)
	assert.Equal(t, 3, info.Children)
	assert.Equal(t, []string{"AUTOSAR", "AR-PACKAGES", "EcucDefs", "ELEMENTS", "Dio", "CONTAINERS", "DioGeneral"}, info.Path)

	_, err = tree.Info(InvalidNode)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestValidate(t *testing.T) {
	t.Run("sample", func(t *testing.T) {
		r := Validate(MustParse(loadSample(t)))
		assert.False(t, r.HasErrors())
		assert.Zero(t, r.Count(SeverityWarning))
		assert.Equal(t, 1, r.Counts[TagARPackages])
		assert.Equal(t, 1, r.Counts[TagARPackage])
		assert.Equal(t, 12, r.Counts[TagShortName])
	})

	t.Run("foreign root", func(t *testing.T) {
		r := Validate(MustParse(`<CONFIG><X/></CONFIG>`))
		assert.False(t, r.HasErrors())
		assert.Equal(t, 3, r.Count(SeverityWarning))
	})

	t.Run("empty", func(t *testing.T) {
		assert.True(t, Validate(New()).HasErrors())
	})
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "TAG", LocalName("{http://autosar.org/schema/r4.0}TAG"))
	assert.Equal(t, "TAG", LocalName("ar:TAG"))
	assert.Equal(t, "TAG", LocalName("TAG"))
}
