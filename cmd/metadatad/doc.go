// Package main provides the entry point for metadatad.
//
// metadatad is the metadata and storage plane node process: it hosts
// the embedded KV store, the metadata service, the MetadataNode
// façade with its full supplemental-manager stack (leases, locks,
// quotas, watches, WORM, CDC, xattrs), the shard router and scaling
// manager, gossip-based cluster membership, and an HTTP surface for
// filesystem operations, cluster administration, and Prometheus
// metrics.
//
// Usage:
//
//	metadatad [flags]
//	metadatad --config /path/to/config.yaml
package main
