// Package state records when the mirror last synced successfully.
package state
