// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package object

import (
	"encoding/json"
)

// PatchOperation is a single JSON Patch (RFC 6902) operation.
type PatchOperation struct {
	Op    string
	Path  string
	Value any
	From  string
}

// MarshalJSON encodes the operation in its RFC 6902 form. The value member
// is only written for the operations that take one, so that a nil value is
// still encoded as null for those.
func (p PatchOperation) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"op":   p.Op,
		"path": p.Path,
	}
	switch p.Op {
	case "add", "replace", "test":
		out["value"] = p.Value
	case "move", "copy":
		out["from"] = p.From
	}
	return json.Marshal(out)
}

// Patch holds the JSON Patch operations to apply to each patchable property
// of an object. An empty list leaves that property untouched.
type Patch struct {
	Value    []PatchOperation
	Channels []PatchOperation
	ACL      []PatchOperation
}

// Empty returns true if the patch has no operations at all.
func (p Patch) Empty() bool {
	return len(p.Value) == 0 && len(p.Channels) == 0 && len(p.ACL) == 0
}
