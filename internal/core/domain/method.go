package domain

import "strings"

// IdempotentMethods is the RFC 7231 set the GLOSSARY names explicitly.
var IdempotentMethods = map[string]bool{
	"GET": true, "HEAD": true, "PUT": true,
	"DELETE": true, "OPTIONS": true, "TRACE": true,
}

// DefaultAllowedRetryMethods mirrors §6's "retries.allowed_methods" default.
func DefaultAllowedRetryMethods() map[string]bool {
	out := make(map[string]bool, len(IdempotentMethods))
	for m := range IdempotentMethods {
		out[m] = true
	}
	return out
}

// NoBodyByDefault is the method set for which §4.1 permits omitting both
// Content-Length and Transfer-Encoding when the caller passed no body.
var NoBodyByDefault = map[string]bool{
	"GET": true, "HEAD": true, "DELETE": true, "OPTIONS": true, "TRACE": true,
}

// NormalizeMethod upper-cases a method token the way HTTP requires.
func NormalizeMethod(method string) string {
	return strings.ToUpper(strings.TrimSpace(method))
}
