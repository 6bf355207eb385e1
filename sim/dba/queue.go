// Implements the per-class frame queue held by every station.

package dba

import (
	"fmt"
	"strings"
)

// FrameQueue is a FIFO of frames waiting for uplink grant. A remainder left
// by fragmentation goes back to the front so it leaves before later frames.
type FrameQueue struct {
	frames []Frame
}

// Enqueue adds a frame to the back of the queue.
func (q *FrameQueue) Enqueue(f Frame) {
	q.frames = append(q.frames, f)
}

func (q *FrameQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, f := range q.frames {
		fmt.Fprintf(&sb, "%d:%g", f.ID, f.Size)
		if i < len(q.frames)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	return len(q.frames)
}

// Bytes returns the sum of queued frame sizes.
func (q *FrameQueue) Bytes() float64 {
	var total float64
	for _, f := range q.frames {
		total += f.Size
	}
	return total
}

// Peek returns the frame at the front of the queue without removing it.
func (q *FrameQueue) Peek() (Frame, bool) {
	if len(q.frames) == 0 {
		return Frame{}, false
	}
	return q.frames[0], true
}

// PushFront inserts a frame at the front of the queue.
func (q *FrameQueue) PushFront(f Frame) {
	q.frames = append([]Frame{f}, q.frames...)
}

// Pop removes the frame at the front of the queue.
func (q *FrameQueue) Pop() (Frame, bool) {
	if len(q.frames) == 0 {
		return Frame{}, false
	}
	f := q.frames[0]
	q.frames = q.frames[1:]
	return f, true
}
