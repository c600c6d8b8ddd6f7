/*
Package observability turns engine lifecycle events into Prometheus
metrics.

Metrics implements the counting; its Hooks method produces the
domain.LifecycleHooks to hand to the engine. Served over HTTP via
Handler, usually next to the conversation API.
*/
package observability
