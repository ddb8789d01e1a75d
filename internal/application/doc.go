// Package application wires a built configuration host into the admin HTTP
// API and the settings file watcher, keeping the main package focused on
// CLI parsing and orchestration.
package application
