// Package app provides the application service layer.
//
// Orchestrates the post use cases shared by the REST handlers and the WebSocket upsert channel.
// Depends on domain interfaces, not concrete implementations.
package app
