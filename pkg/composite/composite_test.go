package composite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
<config>
  <composite id="interfaces" description="per-interface counters">
    <instance hostType="default">
      <scan id="ifIdx" oid="1.3.6.1.2.1.31.1.1.1.18.*" var="ifIdx"/>
      <scan id="drop" oid="1.3.6.1.2.1.31.1.1.1.18.*" var="ifIdx" exclude-only="1"/>
      <result>
        <val id="name" var="ifIdx"/>
        <val id="octets" type="rate" oid="1.3.6.1.2.1.31.1.1.1.6.ifIdx">
          <fctn name="*" value="8"/>
          <fctn name="replace" value="foo" with="bar"/>
        </val>
      </result>
    </instance>
    <input id="site" required="1"/>
    <input id="tag"/>
  </composite>
</config>`

func TestLoadString(t *testing.T) {
	comps, err := LoadString(sampleConfig)
	require.NoError(t, err)
	require.Len(t, comps, 1)

	comp := comps["interfaces"]
	require.NotNil(t, comp)
	assert.Equal(t, "per-interface counters", comp.Description)

	inst := comp.DefaultInstance()
	require.NotNil(t, inst)

	require.Len(t, inst.Scans, 2)
	assert.Equal(t, "ifIdx", inst.Scans[0].ID)
	assert.Equal(t, "1.3.6.1.2.1.31.1.1.1.18.*", inst.Scans[0].OID)
	assert.False(t, inst.Scans[0].ExcludeOnly)
	assert.True(t, inst.Scans[1].ExcludeOnly)

	require.Len(t, inst.Vals, 2)
	assert.Equal(t, "name", inst.Vals[0].ID)
	assert.Equal(t, "ifIdx", inst.Vals[0].Var)

	octets := inst.Vals[1]
	assert.Equal(t, "rate", octets.Type)
	require.Len(t, octets.Fctns, 2)
	assert.Equal(t, "*", octets.Fctns[0].Name)
	assert.Equal(t, "8", octets.Fctns[0].Value)
	assert.Equal(t, "bar", octets.Fctns[1].With())

	require.Len(t, comp.Inputs, 2)
	assert.True(t, comp.Inputs[0].Required)
	assert.False(t, comp.Inputs[1].Required)
}

func TestLoadStringSkipsBadElements(t *testing.T) {
	const doc = `
<config>
  <composite id="messy">
    <instance hostType="default">
      <scan id="ok" oid="1.2.*" var="x"/>
      <scan oid="1.3.*" var="y"/>
      <result>
        <val id="good" var="x"/>
        <val var="x"/>
        <val id="sourceless"/>
        <val id="double" var="x" oid="1.2.x"/>
      </result>
    </instance>
  </composite>
  <composite description="no id"/>
</config>`

	comps, err := LoadString(doc)
	require.NoError(t, err)
	require.Len(t, comps, 1)

	inst := comps["messy"].DefaultInstance()
	require.NotNil(t, inst)

	assert.Len(t, inst.Scans, 1)
	require.Len(t, inst.Vals, 1)
	assert.Equal(t, "good", inst.Vals[0].ID)
}

func TestLoadStringDuplicateIDs(t *testing.T) {
	const doc = `
<config>
  <composite id="dup">
    <instance hostType="default">
      <scan id="a" oid="1.*" var="a"/>
    </instance>
  </composite>
  <composite id="dup">
    <instance hostType="default">
      <scan id="b" oid="2.*" var="b"/>
    </instance>
  </composite>
</config>`

	comps, err := LoadString(doc)
	require.NoError(t, err)
	require.Len(t, comps, 1)

	// First definition wins.
	inst := comps["dup"].DefaultInstance()
	require.Len(t, inst.Scans, 1)
	assert.Equal(t, "a", inst.Scans[0].ID)
}

func TestLoadStringEmptyDocument(t *testing.T) {
	_, err := LoadString(`<config/>`)
	require.ErrorIs(t, err, ErrNoComposites)
}

func TestLoadStringNoRoot(t *testing.T) {
	_, err := LoadString(`<other/>`)
	require.Error(t, err)
}

func TestFindScan(t *testing.T) {
	comps, err := LoadString(sampleConfig)
	require.NoError(t, err)

	inst := comps["interfaces"].DefaultInstance()

	require.NotNil(t, inst.FindScan("ifIdx"))
	assert.Nil(t, inst.FindScan("missing"))
}
