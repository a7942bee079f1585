// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package linereader turns a byte stream into newline delimited text lines.
package linereader

import (
	"bufio"
	"io"
	"iter"
	"strings"

	"github.com/juju/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Lines returns the lines read from r, with the trailing "\n" removed.
//
// The stream is decoded as UTF-8 by a single decoder, so a character whose
// bytes are split across reads is decoded once the rest of it arrives.
// Invalid sequences are replaced with U+FFFD and a leading byte order mark
// is dropped. Any bytes left after the final newline are yielded as a last
// line; an empty remainder is not.
//
// The sequence consumes r and so can only be ranged over once. If reading
// fails, the error is yielded with an empty line and the sequence ends.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		decoded := transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
		br := bufio.NewReader(decoded)
		for {
			line, err := br.ReadString('\n')
			if err == nil {
				if !yield(strings.TrimSuffix(line, "\n"), nil) {
					return
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				if line != "" {
					yield(line, nil)
				}
				return
			}
			yield("", errors.Annotate(err, "reading lines"))
			return
		}
	}
}

// Collect reads every line from r. The lines read before a failure are
// returned alongside the error.
func Collect(r io.Reader) ([]string, error) {
	var lines []string
	for line, err := range Lines(r) {
		if err != nil {
			return lines, errors.Trace(err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}
