// Package discovery locates the control plane through DNS SRV records.
//
// Records are ordered by priority, lowest first, and by weight, highest first.
// The first target becomes the control-plane URL.
package discovery
