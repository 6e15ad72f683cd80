package arxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutate_AddAndInsert(t *testing.T) {
	tree := MustParse(`<A><B/><C/></A>`)
	root := tree.Root()
	kids := tree.Children(root)

	d, err := tree.AddChild(root, "D")
	require.NoError(t, err)
	x, err := tree.InsertSibling(kids[1], "X", true)
	require.NoError(t, err)
	y, err := tree.InsertSibling(kids[0], "Y", false)
	require.NoError(t, err)

	var tags []string
	for _, c := range tree.Children(root) {
		tags = append(tags, tree.Tag(c))
	}
	assert.Equal(t, []string{"B", "Y", "X", "C", "D"}, tags)
	assert.Equal(t, root, tree.Parent(d))
	assert.NotEqual(t, x, y)
}

func TestMutate_HandlesStable(t *testing.T) {
	tree := MustParse(`<A><B><SHORT-NAME>b</SHORT-NAME></B><C/></A>`)
	root := tree.Root()
	kids := tree.Children(root)
	b, c := kids[0], kids[1]

	require.NoError(t, tree.ReplaceTag(b, "RENAMED"))
	require.NoError(t, tree.SetShortName(b, "other"))
	_, err := tree.InsertChild(root, 0, "FIRST")
	require.NoError(t, err)

	assert.Equal(t, "RENAMED", tree.Tag(b))
	assert.Equal(t, "other", tree.ShortName(b))
	assert.Equal(t, "C", tree.Tag(c))
	assert.Equal(t, 2, tree.IndexInParent(c))
}

func TestMutate_Remove(t *testing.T) {
	tree := MustParse(`<A><B><C/></B><D/></A>`)
	root := tree.Root()
	b := tree.Children(root)[0]
	c := tree.Children(b)[0]

	require.NoError(t, tree.Remove(b))
	assert.False(t, tree.Valid(b))
	assert.False(t, tree.Valid(c), "subtree must be removed too")
	assert.Equal(t, 2, tree.Len())

	require.ErrorIs(t, tree.Remove(b), ErrNodeNotFound)
}

func TestMutate_RemoveRootEmptiesTree(t *testing.T) {
	tree := MustParse(`<A><B/></A>`)
	require.NoError(t, tree.Remove(tree.Root()))
	assert.True(t, tree.Empty())
	assert.Zero(t, tree.Len())

	root, err := tree.NewRoot("NEW")
	require.NoError(t, err)
	assert.Equal(t, "NEW", tree.Tag(root))
}

func TestMutate_Misuse(t *testing.T) {
	tree := MustParse(`<A><B/><C><D/></C></A>`)
	root := tree.Root()
	kids := tree.Children(root)
	d := tree.Children(kids[1])[0]

	assert.ErrorIs(t, tree.RemoveChild(root, d), ErrNotChild)
	_, err := tree.InsertSibling(root, "X", true)
	assert.ErrorIs(t, err, ErrNoParent)
	_, err = tree.AddChild(NodeID(999), "X")
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.ErrorIs(t, tree.ReplaceTag(kids[0], "1BAD"), ErrInvalidName)
	assert.ErrorIs(t, tree.ReplaceTag(kids[0], "has space"), ErrInvalidName)
	_, err = tree.NewRoot("AGAIN")
	assert.ErrorIs(t, err, ErrRootExists)
	assert.ErrorIs(t, tree.SetAttr(root, "", "v"), ErrInvalidName)
}

func TestMutate_PrefixInheritance(t *testing.T) {
	tree := MustParse(`<ar:A xmlns:ar="urn:x"><ar:B/></ar:A>`)
	id, err := tree.AddChild(tree.Root(), "C")
	require.NoError(t, err)
	assert.Equal(t, "ar:C", tree.QName(id))

	require.NoError(t, tree.ReplaceTag(id, "D"))
	assert.Equal(t, "ar:D", tree.QName(id))
}

func TestMutate_SetShortName(t *testing.T) {
	tree := MustParse(`<A><VALUE>1</VALUE></A>`)
	root := tree.Root()

	require.NoError(t, tree.SetShortName(root, "Name"))
	first := tree.Children(root)[0]
	assert.Equal(t, TagShortName, tree.Tag(first))
	assert.Equal(t, "Name", tree.ShortName(root))

	require.NoError(t, tree.SetShortName(root, "Renamed"))
	assert.Equal(t, 2, tree.ChildCount(root))
	assert.Equal(t, "Renamed", tree.ShortName(root))

	require.NoError(t, tree.SetShortName(root, ""))
	assert.Equal(t, 1, tree.ChildCount(root))
	_, ok := FindShortName(tree, root)
	assert.False(t, ok)
}

func TestMutate_ObserverOncePerOperation(t *testing.T) {
	tree := MustParse(`<A><B/></A>`)
	root := tree.Root()
	calls := 0
	tree.SetObserver(func() { calls++ })

	_, err := tree.AddChild(root, "C")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// SetShortName creates the child and sets its text as one operation.
	require.NoError(t, tree.SetShortName(root, "n"))
	assert.Equal(t, 2, calls)

	err = tree.Batch(func() error {
		if err := tree.ReplaceTag(root, "Z"); err != nil {
			return err
		}
		if err := tree.SetShortName(root, "m"); err != nil {
			return err
		}
		return tree.SetText(root, "t")
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	require.NoError(t, tree.Batch(func() error { return nil }))
	assert.Equal(t, 3, calls, "empty batch must not notify")
}

func TestClone_Independent(t *testing.T) {
	tree := MustParse(`<A x="1"><B/></A>`)
	clone := tree.Clone()

	b := tree.Children(tree.Root())[0]
	require.NoError(t, tree.SetAttr(tree.Root(), "x", "2"))
	require.NoError(t, tree.Remove(b))

	v, _ := clone.Attr(clone.Root(), "x")
	assert.Equal(t, "1", v)
	assert.True(t, clone.Valid(b))
	assert.Equal(t, "B", clone.Tag(b))
}
