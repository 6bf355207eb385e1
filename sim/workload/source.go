package workload

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/pon-dba/pon-dba-sim/sim"
	"github.com/pon-dba/pon-dba-sim/sim/dba"
)

// radioSpeed is the propagation speed over the wireless access hop, m/s.
const radioSpeed = 3e8

// Enqueuer accepts generated frames; *dba.StationTransmitter implements it.
type Enqueuer interface {
	Enqueue(now int64, class dba.TrafficClass, f dba.Frame) bool
}

// Source generates one application stream into a station. Frames optionally
// cross a wireless access hop first, serialized one after another.
type Source struct {
	Name   string
	kind   dba.TrafficKind
	target Enqueuer
	rng    *rand.Rand
	ids    *dba.FrameIDs

	arrivals     ArrivalSampler
	sizes        SizeSampler
	accessRate   float64
	accessDelay  int64
	accessFreeAt int64

	Generated      int
	GeneratedBytes float64
	Admitted       int
	Dropped        int
}

// NewSource builds a source from a validated spec.
func NewSource(name string, spec SourceSpec, target Enqueuer, rng *rand.Rand, ids *dba.FrameIDs) (*Source, error) {
	if target == nil || rng == nil || ids == nil {
		panic("NewSource: target, rng and ids must not be nil")
	}
	kind, err := dba.ParseTrafficKind(spec.Kind)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	sizes, err := NewSizeSampler(spec.Size)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	rate := spec.Load * spec.DataRate / (8 * sizes.Mean())
	return &Source{
		Name:        name,
		kind:        kind,
		target:      target,
		rng:         rng,
		ids:         ids,
		arrivals:    NewArrivalSampler(spec.Arrival, spec.CV, rate),
		sizes:       sizes,
		accessRate:  spec.AccessRate,
		accessDelay: sim.SecondsToTicks(spec.AccessDistanceM / radioSpeed),
	}, nil
}

// Kind returns the traffic kind the source generates.
func (src *Source) Kind() dba.TrafficKind { return src.kind }

// Start schedules the first frame for now.
func (src *Source) Start(s *sim.Simulator) {
	s.Schedule(&GenerateEvent{time: s.Now(), src: src})
}

func (src *Source) generate(s *sim.Simulator) {
	f := dba.NewFrame(src.ids.Next(), src.kind, src.sizes.Sample(src.rng), s.Now())
	src.Generated++
	src.GeneratedBytes += f.Size

	at := s.Now()
	if src.accessRate > 0 {
		start := max(s.Now(), src.accessFreeAt)
		src.accessFreeAt = start + sim.TxTicks(f.Size, src.accessRate)
		at = src.accessFreeAt + src.accessDelay
	}
	s.Schedule(&ArrivalEvent{time: at, src: src, frame: f})
	s.Schedule(&GenerateEvent{time: s.Now() + src.arrivals.SampleIAT(src.rng), src: src})
}

func (src *Source) arrive(s *sim.Simulator, f dba.Frame) {
	if src.target.Enqueue(s.Now(), f.Class, f) {
		src.Admitted++
		return
	}
	src.Dropped++
	logrus.Tracef("[%s] frame %d dropped at admission", src.Name, f.ID)
}

// GenerateEvent creates the next frame of a source.
type GenerateEvent struct {
	time int64
	src  *Source
}

func (e *GenerateEvent) Timestamp() int64 { return e.time }

func (e *GenerateEvent) Execute(s *sim.Simulator) { e.src.generate(s) }

// ArrivalEvent hands a generated frame to the station.
type ArrivalEvent struct {
	time  int64
	src   *Source
	frame dba.Frame
}

func (e *ArrivalEvent) Timestamp() int64 { return e.time }

func (e *ArrivalEvent) Execute(s *sim.Simulator) { e.src.arrive(s, e.frame) }
