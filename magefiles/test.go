//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const coverProfile = "coverage.out"

// Test groups test targets.
type Test mg.Namespace

// All runs every test.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Unit runs every test with the race detector.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Backends runs the persistence backend and CLI tests.
func (Test) Backends() error {
	return sh.RunV(binGo, "test", "-v",
		"./internal/sqlite/...",
		"./internal/badger/...",
		"./internal/cli/...",
	)
}

// Cover writes coverage.out and prints per-function coverage.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile="+coverProfile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+coverProfile)
}
