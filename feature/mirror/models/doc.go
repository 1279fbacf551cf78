// Package models defines the mirrored tables. Every model implements
// reconcile.Entity; none declares foreign key constraints.
package models
