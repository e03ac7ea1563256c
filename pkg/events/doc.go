// Package events defines the push-based input capture contract: a Source
// streams raw pointer and key edges to a callback until its context ends.
// The native global hook, the scripted source used in tests and the stop-key
// watcher all build on it.
package events
