// Package storage wraps the MinIO Go client for publishing mirror
// snapshots to S3-compatible object storage.
//
// The Client interface covers the calls the exporter makes, so tests use
// the testify mock in core/storage/mocks instead of a live server.
//
//	client, err := storage.NewClient(cfg.Storage)
//	exists, err := client.BucketExists(ctx, cfg.Storage.Bucket)
package storage
