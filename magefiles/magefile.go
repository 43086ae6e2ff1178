//go:build mage

// Package main provides build targets for the thicket project using Mage.
//
// Usage:
//
//	mage build          Compile the thicket binary to bin/
//	mage test:all       Run every test
//	mage test:unit      Run tests with the race detector
//	mage test:backends  Run only the persistence backend tests
//	mage test:cover     Write coverage.out and print per-function coverage
//	mage lint           Run golangci-lint
//	mage vet            Run go vet
//	mage clean          Remove build artifacts
//	mage install        Install thicket to GOPATH/bin
//	mage stats          Print Go LOC per package as JSON
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "thicket"
	binaryDir  = "bin"
	cmdDir     = "./cmd/thicket"
	versionVar = "github.com/mesh-intelligence/thicket/internal/cli.Version"
)

// version returns the version stamped into the binary: THICKET_VERSION,
// else the latest git tag, else "dev".
func version() string {
	if v := os.Getenv("THICKET_VERSION"); v != "" {
		return v
	}
	if tag, err := sh.Output("git", "describe", "--tags", "--always"); err == nil && tag != "" {
		return strings.TrimPrefix(tag, "v")
	}
	return "dev"
}

// Build compiles the thicket binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	ldflags := "-X " + versionVar + "=" + version()
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	for _, p := range []string{binaryDir, coverProfile} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
