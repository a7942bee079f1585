// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package object defines the unit of state that is synchronised with pods,
// along with the local drafts, patches and change events that describe
// optimistic mutations of it.
package object

import (
	"slices"
	"time"
)

// ACL lists the actors allowed to see an object. A nil ACL means the
// object is public.
type ACL []string

// Object is a document as known by a pod, together with the channels it
// is posted to and its access control.
type Object struct {
	// URL identifies the object. It is empty for objects that have not
	// been assigned an identity yet.
	URL string `json:"url,omitempty"`

	// Actor is the identity of the object's author.
	Actor string `json:"actor,omitempty"`

	// Value is the opaque payload of the object.
	Value any `json:"value"`

	// Channels are the channels the object is discoverable in.
	Channels []string `json:"channels"`

	// ACL restricts who can see the object.
	ACL ACL `json:"acl"`

	// LastModified is the time the object was last changed.
	LastModified time.Time `json:"lastModified"`

	// Tombstone marks an object that has been deleted.
	Tombstone bool `json:"tombstone"`
}

// Copy returns a copy of the object that shares no slices with the
// original. The value is copied shallowly.
func (o Object) Copy() Object {
	o.Channels = slices.Clone(o.Channels)
	o.ACL = slices.Clone(o.ACL)
	return o
}

// LocalObject is the caller supplied part of an object, used when putting
// a new version of an existing object.
type LocalObject struct {
	Value    any
	Channels []string
	ACL      ACL
}

// Overlay returns a copy of old with the local object's value, channels and
// acl applied on top. The result is never a tombstone. A nil ACL is applied
// like any other, making the result public.
func (l LocalObject) Overlay(old Object) Object {
	result := old.Copy()
	result.Value = l.Value
	result.Channels = slices.Clone(l.Channels)
	result.ACL = slices.Clone(l.ACL)
	result.Tombstone = false
	return result
}

// ChangeEvent describes a local change to an object. A nil New means the
// object was deleted.
type ChangeEvent struct {
	Old Object
	New *Object
}

// Deleted returns true if the event describes a deletion.
func (e ChangeEvent) Deleted() bool {
	return e.New == nil
}
