package access

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Merge validates patch and applies it on top of current, returning a new
// set. Pure: neither argument is mutated.
//
// Every patch key must name a valid module and every patch value must decode
// as a complete Grant (boolean, or {read,write} pair). A module present in
// the patch is overwritten wholesale; modules absent from the patch are
// carried over unchanged. Keys are processed in sorted order so the reported
// error is deterministic.
func Merge(current PermissionSet, patch map[string]json.RawMessage) (PermissionSet, error) {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !ValidModule(k) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownModule, k)
		}
	}

	grants := make(map[Module]Grant, len(keys))
	for _, k := range keys {
		var g Grant
		if err := json.Unmarshal(patch[k], &g); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidGrant, k)
		}
		grants[Module(k)] = g
	}

	result := current.Clone()
	for m, g := range grants {
		result[m] = g
	}
	return result, nil
}
