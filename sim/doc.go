// Package sim provides the discrete-event kernel for the PON DBA simulator.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - event.go: the Event interface and the deterministic event queue
//   - simulator.go: the clock, scheduling, cancellation and the event loop
//   - timer.go: re-armable timer handles used by self-rescheduling components
//
// # Architecture
//
// The kernel knows nothing about optical networks. Sub-packages build on it:
//   - sim/dba/: ranging, grant computation, station transmitters and the splitter relay
//   - sim/network/: topology assembly for the outer tier and nested inner tiers
//   - sim/workload/: traffic sources feeding station queues
//   - sim/stats/: Prometheus statistics egress
//   - sim/trace/: per-cycle decision trace recording
//
// Time is an int64 count of picosecond ticks (see units.go). Events due at
// the same tick fire in scheduling order.
package sim
