// Package entry persists the bridge's single config entry.
//
// The entry holds the Beestat API key and the poll interval. It is seeded
// from the config file on first start and is authoritative afterwards:
// changes made through the API survive restarts even if the file still
// carries the old values.
package entry
