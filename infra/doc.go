// Package infra holds the adapters around the dispatch core: fleet
// registries, planners, the ILP REST client, event transports (MQTT and
// WebSocket), metrics sinks, logging and error reporting. Core packages
// never import them.
package infra
