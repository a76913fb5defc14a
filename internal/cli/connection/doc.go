// Package connection provides the HTTP client metadatactl uses to talk
// to a metadatad node's admin and filesystem API:
//
//   - http.go: HTTP/HTTPS client implementation
package connection
