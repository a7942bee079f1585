// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package localchanges

import (
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gojsonschema"

	"github.com/juju/podsync/core/object"
)

// validator checks objects, in their JSON form, against a JSON schema.
type validator struct {
	schema *gojsonschema.Schema
}

// newValidator compiles schema, which may be anything that encodes to a
// JSON schema document.
func newValidator(schema any) (*validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, errors.NewNotValid(err, "compiling schema")
	}
	return &validator{schema: compiled}, nil
}

// validate returns nil if obj conforms to the schema, and otherwise an
// error listing every violation.
func (v *validator) validate(obj object.Object) error {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil {
		return errors.Annotatef(err, "validating %q", obj.URL)
	}
	if result.Valid() {
		return nil
	}
	messages := make([]string, len(result.Errors()))
	for i, resultErr := range result.Errors() {
		messages[i] = resultErr.String()
	}
	return errors.NotValidf("object %q (%s)", obj.URL, strings.Join(messages, "; "))
}
