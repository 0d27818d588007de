package utils

import (
	"courtbook-api/core/constants"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// GenerateID returns a short random identifier for request correlation.
func GenerateID() string {
	id, err := gonanoid.Generate(constants.RequestIDAlphabet, constants.RequestIDLength)
	if err != nil {
		return ""
	}
	return id
}

// GenerateCallID returns an identifier for a tool call that arrived without one.
func GenerateCallID() string {
	id, err := gonanoid.Generate(constants.RequestIDAlphabet, 8)
	if err != nil {
		return "call_local"
	}
	return "call_" + id
}
