package sim

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey identifies a reproducible run: the same key and the same
// configuration give bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// SourceStream names the random stream of one traffic source attached to
// station of tier.
func SourceStream(tier string, station int, source string) string {
	return fmt.Sprintf("source/%s/%d/%s", tier, station, source)
}

// RandomStreams hands out one independent *rand.Rand per named consumer.
// Drawing from one stream never shifts another, so adding a source leaves
// the arrivals of every other source unchanged. Not safe for concurrent use.
type RandomStreams struct {
	key     SimulationKey
	streams map[string]*rand.Rand
	names   []string
}

// NewRandomStreams creates an empty stream set for key.
func NewRandomStreams(key SimulationKey) *RandomStreams {
	return &RandomStreams{key: key, streams: make(map[string]*rand.Rand)}
}

// Stream returns the stream for name, creating it on first use.
func (r *RandomStreams) Stream(name string) *rand.Rand {
	if rng, ok := r.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(streamSeed(r.key, name)))
	r.streams[name] = rng
	r.names = append(r.names, name)
	return rng
}

// Names lists the streams created so far, in creation order.
func (r *RandomStreams) Names() []string { return r.names }

// Key returns the key the streams derive from.
func (r *RandomStreams) Key() SimulationKey { return r.key }

// streamSeed is the FNV-1a hash of the key bytes followed by the name.
func streamSeed(key SimulationKey, name string) int64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key))
	h.Write(buf[:])
	h.Write([]byte(name))
	return int64(h.Sum64())
}
