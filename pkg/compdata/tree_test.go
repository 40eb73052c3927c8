package compdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreeman451/compdata/pkg/cache"
)

func blankTree(pattern string, oids ...string) *Tree {
	m := MapOID(pattern)
	data := make(cache.HostData, len(oids))

	for _, oid := range oids {
		data[oid] = sample("x", 1)
	}

	return TransformOIDs(data, m, ModeBlank)
}

func treeKeys(n *Node) []string {
	keys := make([]string, 0, len(n.Children))
	for key := range n.Children {
		keys = append(keys, key)
	}

	return keys
}

func TestMergeKeysUnion(t *testing.T) {
	combined := blankTree("1.2.2.a.b", "1.2.2.10.1", "1.2.2.10.2")
	dep := blankTree("1.2.1.a", "1.2.1.10", "1.2.1.11")

	combined.Root.mergeKeys(dep.Root)

	require.ElementsMatch(t, []string{"10", "11"}, treeKeys(combined.Root))

	// Keys already present keep their subtree.
	assert.Len(t, combined.Root.Children["10"].Children, 2)

	// The merged-in branch has no leaves at legend depth.
	assert.True(t, combined.Root.Children["11"].isLeaf())
}

func TestMergeKeysIdempotent(t *testing.T) {
	tree := blankTree("1.2.1.a", "1.2.1.10", "1.2.1.11")
	clone := tree.deepCopy()

	// Combining a scan with itself yields the same tree.
	tree.Root.mergeKeys(clone.Root)

	assert.ElementsMatch(t, []string{"10", "11"}, treeKeys(tree.Root))
	assert.True(t, tree.Root.Children["10"].isLeaf())
}

func TestTrimDropsUnscannedKeys(t *testing.T) {
	scan := blankTree("1.2.1.a", "1.2.1.10")

	m := MapOID("1.3.a")
	val := TransformOIDs(cache.HostData{
		"1.3.10": sample(float64(1), 100),
		"1.3.20": sample(float64(2), 100),
	}, m, ModeDefault)

	val.Root.trim(scan.Root)

	require.Len(t, val.Root.Children, 1)

	leaf := val.Root.Children["10"]
	require.NotNil(t, leaf.Sample)
	assert.Equal(t, float64(1), leaf.Sample.Value)
}

func TestTrimNested(t *testing.T) {
	scan := blankTree("1.2.2.a.b", "1.2.2.10.1", "1.2.2.10.2")

	// A branch merged in without leaves loses everything beneath it.
	scan.Root.mergeKeys(blankTree("1.2.1.a", "1.2.1.11").Root)

	m := MapOID("1.3.a.b")
	val := TransformOIDs(cache.HostData{
		"1.3.10.1": sample(float64(1), 100),
		"1.3.10.2": sample(float64(2), 100),
		"1.3.10.3": sample(float64(3), 100),
		"1.3.11.5": sample(float64(4), 100),
		"1.3.12.1": sample(float64(5), 100),
	}, m, ModeDefault)

	val.Root.trim(scan.Root)

	require.ElementsMatch(t, []string{"10", "11"}, treeKeys(val.Root))
	assert.ElementsMatch(t, []string{"1", "2"}, treeKeys(val.Root.Children["10"]))
	assert.Empty(t, val.Root.Children["11"].Children)
}

func TestDeepCopyIsDetached(t *testing.T) {
	m := MapOID("1.2.1.a")
	tree := TransformOIDs(cache.HostData{
		"1.2.1.10": sample("eth0", 50),
	}, m, ModeScan)

	clone := tree.deepCopy()
	clone.Root.Children["10"].Sample.Value = "changed"

	assert.Equal(t, "eth0", tree.Root.Children["10"].Sample.Value)
}
