//go:build mage

// Package main provides build targets for fishtrack using Mage.
//
// Usage:
//
//	mage build          Compile fishtrack and fishtrack-daemon to bin/
//	mage test           Run all tests
//	mage testUnit       Run tests outside test/bdd
//	mage testBDD        Run the godog suites
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binaryDir = "bin"

var binaries = map[string]string{
	"fishtrack":        "./cmd/fishtrack",
	"fishtrack-daemon": "./cmd/fishtrack-daemon",
}

// Build compiles both binaries to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	for name, dir := range binaries {
		if err := sh.RunV("go", "build", "-o", filepath.Join(binaryDir, name), dir); err != nil {
			return err
		}
	}
	return nil
}

// Test runs all tests.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// TestUnit runs every package except the BDD suites.
func TestUnit() error {
	pkgs, err := sh.Output("go", "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for _, pkg := range strings.Split(pkgs, "\n") {
		if pkg != "" && !strings.Contains(pkg, "/test/bdd") {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	args := append([]string{"test", "-race"}, unitPkgs...)
	return sh.RunV("go", args...)
}

// TestBDD runs the godog feature suites.
func TestBDD() error {
	return sh.RunV("go", "test", "-v", "./test/bdd/...")
}

// Lint runs golangci-lint.
func Lint() error {
	mg.Deps(Vet)
	return sh.RunV("golangci-lint", "run", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}
