// Package server holds the settings of the local HTTP surface (serve command).
package server
