// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

/*
Package core holds the concepts shared by every part of podsync: the objects
synchronised with pods and the transport used to reach them.

Packages under core must stay free of behaviour. In particular:

  - nothing here talks to a pod; the feed client lives in internal/feed.
  - nothing here keeps state; caches and subscriptions live with the
    components that own them.
  - core packages may import each other, but never anything else from
    github.com/juju/podsync.
*/
package core
