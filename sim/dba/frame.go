package dba

import (
	"fmt"
	"strings"
)

// TrafficKind names the application stream a frame belongs to.
type TrafficKind int

const (
	Background TrafficKind = iota
	XR
	Haptic
	Control
	HMD
)

var trafficKindNames = map[TrafficKind]string{
	Background: "background",
	XR:         "xr",
	Haptic:     "haptic",
	Control:    "control",
	HMD:        "hmd",
}

func (k TrafficKind) String() string {
	if name, ok := trafficKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TrafficKind(%d)", int(k))
}

// ParseTrafficKind parses a kind name such as "xr" or "background".
func ParseTrafficKind(s string) (TrafficKind, error) {
	for k, name := range trafficKindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown traffic kind %q", s)
}

// ClassForKind maps a stream onto its T-CONT: background traffic is best
// effort (class 3), every interactive stream is assured (class 2).
func ClassForKind(k TrafficKind) TrafficClass {
	if k == Background {
		return Class3
	}
	return Class2
}

// unset marks an origin field the frame has not passed through yet.
const unset = -1

// Frame is one variable-length uplink frame. Frames are values: queues hold
// copies and fragmentation produces two new values.
type Frame struct {
	ID            uint64
	Kind          TrafficKind
	Class         TrafficClass
	Size          float64 // bytes
	GeneratedAt   int64
	ArrivedAt     int64 // admission at the current station
	DepartedAt    int64 // transmission start at the current station
	FragmentCount int

	// Origin path; unset until the frame passes through that level.
	OuterStation int
	InnerDomain  int
	InnerStation int
}

// NewFrame creates an unfragmented frame generated at the given tick.
func NewFrame(id uint64, kind TrafficKind, size float64, generatedAt int64) Frame {
	if size <= 0 {
		panic(fmt.Sprintf("NewFrame: size must be positive, got %g", size))
	}
	return Frame{
		ID:           id,
		Kind:         kind,
		Class:        ClassForKind(kind),
		Size:         size,
		GeneratedAt:  generatedAt,
		OuterStation: unset,
		InnerDomain:  unset,
		InnerStation: unset,
	}
}

// Split carves the first n bytes off the frame. Both parts carry an
// incremented fragment count; head.Size + rest.Size == f.Size.
func (f Frame) Split(n float64) (head, rest Frame) {
	if n <= 0 || n >= f.Size {
		panic(fmt.Sprintf("Split: fragment size %g outside (0,%g)", n, f.Size))
	}
	head, rest = f, f
	head.Size = n
	rest.Size = f.Size - n
	head.FragmentCount++
	rest.FragmentCount++
	return head, rest
}

// ByteLength implements Message.
func (f Frame) ByteLength() float64 { return f.Size }

func (Frame) isMessage() {}

// FrameIDs hands out unique frame ids for one run.
type FrameIDs struct {
	next uint64
}

// Next returns a fresh id, starting at 1.
func (g *FrameIDs) Next() uint64 {
	g.next++
	return g.next
}
