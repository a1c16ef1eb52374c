//go:build tools
// +build tools

// Package tools pins the code generators run through go generate (mockgen)
// so go.mod and go.sum track them.
package chat_session

import (
	_ "go.uber.org/mock/mockgen"
)
