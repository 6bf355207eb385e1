package sim

import "math"

// TicksPerSecond fixes the kernel resolution at one picosecond. A minimum
// uplink header at 50 Gb/s lasts under 3 ns, so microsecond or nanosecond
// ticks would round windows together.
const TicksPerSecond = 1e12

// SecondsToTicks converts seconds to the nearest tick.
func SecondsToTicks(s float64) int64 {
	return int64(math.Round(s * TicksPerSecond))
}

// TicksToSeconds converts ticks to seconds.
func TicksToSeconds(t int64) float64 {
	return float64(t) / TicksPerSecond
}

// TxTicks returns the serialization time of the given number of bytes on a
// link of bitRate bits per second.
func TxTicks(bytes, bitRate float64) int64 {
	if bitRate <= 0 {
		panic("TxTicks: bit rate must be positive")
	}
	return SecondsToTicks(bytes * 8 / bitRate)
}
