// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package httpapi_test

import (
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}
