// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd

import (
	"io"
	"os"

	"github.com/juju/errors"
)

// FileVar represents a path to a file given on the command line.
type FileVar struct {
	// Path is the path to the file.
	Path string
}

// Set stores the path. It implements gnuflag.Value.
func (f *FileVar) Set(v string) error {
	f.Path = v
	return nil
}

// String returns the path to the file.
func (f *FileVar) String() string {
	return f.Path
}

// IsSet reports whether a path was given.
func (f *FileVar) IsSet() bool {
	return f.Path != ""
}

// Open returns an io.ReadCloser for the file, relative to the context.
func (f *FileVar) Open(ctx *Context) (io.ReadCloser, error) {
	if f.Path == "" {
		return nil, errors.NotValidf("empty path")
	}
	file, err := os.Open(ctx.AbsPath(f.Path))
	return file, errors.Trace(err)
}
