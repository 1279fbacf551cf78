// Package utils provides common utility functions for task-mirror.
// It includes loose scalar conversion for decoded JSON records, atomic YAML
// file persistence and other shared logic that doesn't fit into
// domain-specific packages.
package utils
