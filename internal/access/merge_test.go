package access

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawPatch(t *testing.T, src string) map[string]json.RawMessage {
	t.Helper()
	var patch map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(src), &patch))
	return patch
}

func TestMergeEmptyPatchIsNoOp(t *testing.T) {
	current, err := DefaultsFor(RoleCashier)
	require.NoError(t, err)

	result, err := Merge(current, map[string]json.RawMessage{})
	require.NoError(t, err)
	assert.Equal(t, current, result)
}

func TestMergeRejectsUnknownModule(t *testing.T) {
	current, _ := DefaultsFor(RoleCashier)
	_, err := Merge(current, rawPatch(t, `{"billing":{"read":true,"write":true}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownModule))
	assert.Contains(t, err.Error(), "billing")
}

func TestMergeRejectsPartialGrant(t *testing.T) {
	current, _ := DefaultsFor(RoleCashier)
	_, err := Merge(current, rawPatch(t, `{"reports":{"read":true}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidGrant))
	assert.Contains(t, err.Error(), "reports")
}

func TestMergeRejectsNonBooleanFields(t *testing.T) {
	current, _ := DefaultsFor(RoleCashier)
	for _, src := range []string{
		`{"reports":{"read":"true","write":true}}`,
		`{"reports":1}`,
		`{"reports":null}`,
		`{"reports":["read"]}`,
	} {
		_, err := Merge(current, rawPatch(t, src))
		require.Error(t, err, "patch %s", src)
		assert.True(t, errors.Is(err, ErrInvalidGrant), "patch %s", src)
	}
}

func TestMergeNullGrantCannotDowngrade(t *testing.T) {
	current, _ := DefaultsFor(RoleCashier)
	require.Equal(t, Grant{Read: true, Write: true}, current[ModuleOrders])

	_, err := Merge(current, rawPatch(t, `{"orders":null}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidGrant))
	assert.Equal(t, Grant{Read: true, Write: true}, current[ModuleOrders], "existing grant untouched")
}

func TestMergeModuleValidationTakesPrecedence(t *testing.T) {
	current, _ := DefaultsFor(RoleCashier)
	// Both an unknown key and a bad grant: the unknown module is reported.
	_, err := Merge(current, rawPatch(t, `{"billing":true,"reports":{"read":true}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownModule))
}

func TestMergeOverwritesPatchedCarriesRest(t *testing.T) {
	current, _ := DefaultsFor(RoleCashier)
	result, err := Merge(current, rawPatch(t, `{"settings":{"read":true,"write":false}}`))
	require.NoError(t, err)

	assert.Equal(t, Grant{Read: true, Write: false}, result[ModuleSettings])
	for _, m := range []Module{ModuleDashboard, ModuleReports, ModuleInventory, ModuleOrders, ModuleCustomers} {
		assert.Equal(t, current[m], result[m], "module %s", m)
	}
	assert.True(t, result.Complete())
}

func TestMergeAcceptsLegacyBooleanGrant(t *testing.T) {
	current, _ := DefaultsFor(RoleUser)
	result, err := Merge(current, rawPatch(t, `{"orders":true,"reports":false}`))
	require.NoError(t, err)
	assert.Equal(t, Grant{Read: true, Write: true}, result[ModuleOrders])
	assert.Equal(t, Grant{}, result[ModuleReports])
}

func TestMergeShallowOverwritePerModule(t *testing.T) {
	current := PermissionSet{ModuleOrders: {Read: true, Write: true}}
	result, err := Merge(current, rawPatch(t, `{"orders":{"read":true,"write":false}}`))
	require.NoError(t, err)
	// The patched grant replaces the module wholesale.
	assert.Equal(t, Grant{Read: true, Write: false}, result[ModuleOrders])
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	current, _ := DefaultsFor(RoleCashier)
	snapshot := current.Clone()
	_, err := Merge(current, rawPatch(t, `{"settings":{"read":true,"write":true}}`))
	require.NoError(t, err)
	assert.Equal(t, snapshot, current)
}

func TestMergeIdempotent(t *testing.T) {
	current, _ := DefaultsFor(RoleCashier)
	patch := rawPatch(t, `{"settings":{"read":true,"write":false},"orders":false}`)

	once, err := Merge(current, patch)
	require.NoError(t, err)
	twice, err := Merge(once, patch)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestMergeFailureLeavesNoResult(t *testing.T) {
	current, _ := DefaultsFor(RoleCashier)
	result, err := Merge(current, rawPatch(t, `{"orders":{"read":true,"write":true},"bogus":true}`))
	require.Error(t, err)
	assert.Nil(t, result)
}
