// Package export publishes JSON snapshots of the mirror to S3-compatible
// object storage.
//
// Every export writes <prefix>/<timestamp>.json and overwrites
// <prefix>/latest.json, then prunes timestamped snapshots beyond the
// configured retention.
package export
