// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package errutil

import (
	"fmt"

	"github.com/samber/oops"
)

// Code returns the oops error code carried by err, or "" if err is not an
// oops error or has no code.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	if s, ok := code.(string); ok {
		return s
	}
	return fmt.Sprint(code)
}
