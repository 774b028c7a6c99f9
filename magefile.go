//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "pas2cs"

// Default target to run when none is specified
var Default = Build

// Build compiles the pas2cs binary
func Build() error {
	fmt.Println("Building", binary)
	return sh.RunV("go", "build", "-o", binary, "./cmd/pas2cs")
}

// Test runs all unit tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Install runs the tests and installs pas2cs into GOBIN
func Install() error {
	mg.Deps(Test)
	return sh.RunV("go", "install", "./cmd/pas2cs")
}

// Clean removes build artifacts
func Clean() error {
	return sh.Rm(binary)
}
