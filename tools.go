//go:build tools

// Package locals_bot pins mockgen so that `go generate ./...` regenerates
// mocks/ with the version recorded in go.mod.
package locals_bot

import (
	_ "go.uber.org/mock/mockgen"
)
