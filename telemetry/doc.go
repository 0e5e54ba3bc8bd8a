// Package telemetry implements core.Logger and core.Telemetry: a
// dual-format structured logger (JSON for production, text for local
// development, following the teacher framework's layered logger) and an
// OpenTelemetry-backed tracer/meter for the spans and counters every
// component in the engine emits around its work.
package telemetry
