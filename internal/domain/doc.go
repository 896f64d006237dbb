// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (errors.go, post.go) hold shared types and the
// repository contract. No implementation code - just contracts.
package domain
