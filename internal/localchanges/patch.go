// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package localchanges

import (
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/juju/errors"

	"github.com/juju/podsync/core/object"
)

// applyPatch returns a copy of old with patch applied to each property that
// has operations. old is left untouched.
func applyPatch(patch object.Patch, old object.Object) (object.Object, error) {
	result := old.Copy()
	result.Tombstone = false

	if len(patch.Value) > 0 {
		var value any
		if err := patchProperty(old.Value, patch.Value, &value); err != nil {
			return object.Object{}, errors.Annotate(err, "patching value")
		}
		result.Value = value
	}
	if len(patch.Channels) > 0 {
		channels := old.Channels
		if channels == nil {
			channels = []string{}
		}
		var patched []string
		if err := patchProperty(channels, patch.Channels, &patched); err != nil {
			return object.Object{}, errors.Annotate(err, "patching channels")
		}
		result.Channels = patched
	}
	if len(patch.ACL) > 0 {
		acl := old.ACL
		if acl == nil {
			acl = object.ACL{}
		}
		var patched object.ACL
		if err := patchProperty(acl, patch.ACL, &patched); err != nil {
			return object.Object{}, errors.Annotate(err, "patching acl")
		}
		result.ACL = patched
	}
	return result, nil
}

// patchProperty applies ops to the JSON form of current and decodes the
// result into out.
func patchProperty(current any, ops []object.PatchOperation, out any) error {
	doc, err := json.Marshal(current)
	if err != nil {
		return errors.Trace(err)
	}
	encoded, err := json.Marshal(ops)
	if err != nil {
		return errors.Trace(err)
	}
	decoded, err := jsonpatch.DecodePatch(encoded)
	if err != nil {
		return errors.NewNotValid(err, "decoding patch")
	}
	patched, err := decoded.Apply(doc)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(json.Unmarshal(patched, out))
}
