// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// LoadOrchestrator runs batch loads, Embedder drives the embedding provider,
// TrialSearchService answers registry lookups, WatchService appends changed
// records and SettingsService builds settings from config and the environment.
package services
