// Package database handles entity store connections and schema inspection.
//
// It wraps GORM to configure either the embedded SQLite store (the default,
// one file on local disk, created if absent) or a MySQL server.
//
// # Connect
//
// Connect opens the store. SQLite uses the pure-Go modernc driver with a
// single connection so concurrent sync goroutines serialize their writes.
//
// # Schema Inspection
//
// GetTableColumns and CheckSchema compare the on-disk schema with the gorm
// models. A mismatch means the store predates a model change; the mirror
// discards it and resyncs from empty. IsSchemaError recognises the same
// condition from a failed query.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	missing, err := database.CheckSchema(db, &models.Task{})
package database
