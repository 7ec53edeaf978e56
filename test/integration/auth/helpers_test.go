// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

//go:build integration

package auth_test

import (
	"time"

	. "github.com/onsi/gomega" //nolint:revive // gomega convention

	"github.com/natours/natours/internal/auth"
)

var hasher = auth.NewArgon2idHasher(auth.HashParams{Time: 1, Memory: 8 * 1024, Threads: 1})

func mustHash(password string) string {
	hash, err := hasher.Hash(password)
	Expect(err).NotTo(HaveOccurred())
	return hash
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
