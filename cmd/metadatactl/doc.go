// Package main provides the entry point for metadatactl.
//
// metadatactl is the administrative command-line client for a running
// metadatad node. It talks to the node's HTTP surface to inspect
// cluster health, drive filesystem operations for testing and
// scripting, and manage quotas and WORM retention.
//
// Usage:
//
//	metadatactl --server localhost:8080 status
//	metadatactl fs mkdir --parent 1 --uid 0 --gid 0 --mode 0755 docs
//	metadatactl admin quota-set --uid 1000 --gid 1000 --max-bytes 1073741824
package main
