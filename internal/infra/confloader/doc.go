// Package confloader loads ClaudeFS node configuration from layered
// sources using koanf.
//
// Sources, in increasing priority:
//
//  1. Defaults already set on the target struct
//  2. A YAML configuration file
//  3. Environment variables
//
// A Watcher is available to hot-reload non-topology settings from a
// changed configuration file.
package confloader
