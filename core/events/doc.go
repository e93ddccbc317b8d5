// Package events defines the observer-facing streams emitted by the dispatch
// engine and the in-process broadcaster fanning them out.
//
// Topics:
//   - vehicle-updates: VehicleUpdate, per-step position and status of a mission
//   - system-state: SystemState, reserved versus available vehicle counts
//   - delivery-status: DeliveryStatus, terminal outcome of a delivery or batch
package events
