// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package object

import (
	"encoding/json"
	"time"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type objectSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&objectSuite{})

func (s *objectSuite) TestCopyDoesNotShareSlices(c *gc.C) {
	obj := Object{Channels: []string{"a"}, ACL: ACL{"bob"}}
	copied := obj.Copy()
	copied.Channels[0] = "b"
	copied.ACL[0] = "carol"
	c.Check(obj.Channels, jc.DeepEquals, []string{"a"})
	c.Check(obj.ACL, jc.DeepEquals, ACL{"bob"})
}

func (s *objectSuite) TestOverlay(c *gc.C) {
	modified := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	old := Object{
		URL:          "https://pod.example/1",
		Actor:        "https://pod.example/alice",
		Value:        "old",
		Channels:     []string{"a"},
		ACL:          ACL{"bob"},
		LastModified: modified,
		Tombstone:    true,
	}
	result := LocalObject{Value: "new", Channels: []string{"b"}}.Overlay(old)
	// The draft has no ACL, so bob's access goes.
	c.Check(result, jc.DeepEquals, Object{
		URL:          old.URL,
		Actor:        old.Actor,
		Value:        "new",
		Channels:     []string{"b"},
		LastModified: modified,
	})
	c.Check(old.Tombstone, jc.IsTrue)
}

func (s *objectSuite) TestChangeEventDeleted(c *gc.C) {
	c.Check(ChangeEvent{}.Deleted(), jc.IsTrue)
	c.Check(ChangeEvent{New: &Object{}}.Deleted(), jc.IsFalse)
}

func (s *objectSuite) TestJSONFieldNames(c *gc.C) {
	data, err := json.Marshal(Object{
		URL:          "u",
		Value:        map[string]any{"k": 1},
		Channels:     []string{"c"},
		LastModified: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(string(data), jc.JSONEquals, map[string]any{
		"url":          "u",
		"value":        map[string]any{"k": 1},
		"channels":     []any{"c"},
		"acl":          nil,
		"lastModified": "2024-03-01T12:00:00Z",
		"tombstone":    false,
	})
}

func (s *objectSuite) TestPatchOperationJSON(c *gc.C) {
	for _, test := range []struct {
		op       PatchOperation
		expected string
	}{
		{PatchOperation{Op: "add", Path: "/a", Value: 1}, `{"op":"add","path":"/a","value":1}`},
		{PatchOperation{Op: "replace", Path: "/a"}, `{"op":"replace","path":"/a","value":null}`},
		{PatchOperation{Op: "remove", Path: "/a", Value: 1}, `{"op":"remove","path":"/a"}`},
		{PatchOperation{Op: "move", Path: "/b", From: "/a"}, `{"from":"/a","op":"move","path":"/b"}`},
	} {
		data, err := json.Marshal(test.op)
		c.Assert(err, jc.ErrorIsNil)
		c.Check(string(data), gc.Equals, test.expected)
	}
}

func (s *objectSuite) TestPatchEmpty(c *gc.C) {
	c.Check(Patch{}.Empty(), jc.IsTrue)
	c.Check(Patch{ACL: []PatchOperation{{Op: "remove", Path: "/0"}}}.Empty(), jc.IsFalse)
}
