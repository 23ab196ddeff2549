// Package seglist implements an ordered, non-overlapping list of half-open
// byte intervals used to track which bytes of an SDU have been transmitted
// (TX "unsent" list) or received (RX "received" list).
package seglist

import (
	"sort"

	log "github.com/sirupsen/logrus"
)

// Segment is a half-open byte interval [Start, End).
type Segment struct {
	Start uint32
	End   uint32
}

// Empty reports whether the segment covers no bytes.
func (s Segment) Empty() bool {
	return s.Start >= s.End
}

// Len returns the number of bytes the segment covers.
func (s Segment) Len() uint32 {
	if s.Empty() {
		return 0
	}
	return s.End - s.Start
}

// List holds an ordered, disjoint, maximally-coalesced set of segments.
type List struct {
	segs []Segment
}

// New builds a list containing a single initial segment, used to seed a TX
// SDU's unsent list with the full payload range.
func New(seg Segment) *List {
	l := &List{}
	if !seg.Empty() {
		l.segs = append(l.segs, seg)
	}
	return l
}

// Segments returns a copy of the ordered segment slice.
func (l *List) Segments() []Segment {
	out := make([]Segment, len(l.segs))
	copy(out, l.segs)
	return out
}

// Len reports how many disjoint segments the list currently holds.
func (l *List) Len() int {
	return len(l.segs)
}

// Head returns the first (lowest-offset) segment and whether the list is
// non-empty.
func (l *List) Head() (Segment, bool) {
	if len(l.segs) == 0 {
		return Segment{}, false
	}
	return l.segs[0], true
}

// SetHeadStart advances the start of the head segment, used by the TX engine
// after a PDU is emitted to record how much of the segment has been sent.
func (l *List) SetHeadStart(start uint32) {
	if len(l.segs) == 0 {
		return
	}
	l.segs[0].Start = start
}

// PopHead removes the head segment entirely, used by the TX engine once a
// PDU has consumed it in full.
func (l *List) PopHead() {
	if len(l.segs) == 0 {
		return
	}
	l.segs = l.segs[1:]
}

// Insert inserts the novel portion of seg into the list, merging with
// neighbours. It returns:
//   - unique: the sub-interval of seg that was not already covered by the
//     list (the part to the left of the first overlap, or before the first
//     segment with a greater start), and has now been inserted
//   - remaining: any portion of seg beyond the boundary handled by this call
//   - ok: false if seg was entirely subsumed by the existing list (no new
//     data, caller should stop)
//
// Because a single seg may overlap multiple existing entries, the caller is
// expected to loop, re-invoking Insert with remaining until it is empty
// (InsertAll does this).
func (l *List) Insert(seg Segment) (unique Segment, remaining Segment, ok bool) {
	if seg.Empty() {
		return Segment{}, Segment{}, false
	}

	idx := sort.Search(len(l.segs), func(i int) bool { return l.segs[i].End >= seg.Start })

	if idx < len(l.segs) && l.segs[idx].Start <= seg.Start {
		// seg begins inside (or exactly at the start of) an existing
		// segment: trim off the already-covered prefix.
		newStart := l.segs[idx].End
		if newStart >= seg.End {
			// Fully subsumed by this single neighbour.
			log.Debugf("seglist: insert [%d,%d) fully subsumed by [%d,%d)",
				seg.Start, seg.End, l.segs[idx].Start, l.segs[idx].End)
			return Segment{}, Segment{}, false
		}
		seg.Start = newStart
		idx++
	}

	uniqueEnd := seg.End
	if idx < len(l.segs) && l.segs[idx].Start < seg.End {
		uniqueEnd = l.segs[idx].Start
	}

	unique = Segment{Start: seg.Start, End: uniqueEnd}
	if unique.Empty() {
		// Not reachable while the list stays coalesced (the next segment
		// always starts past seg.Start); reported as "no new data".
		return Segment{}, Segment{}, false
	}

	if seg.End > uniqueEnd {
		remaining = Segment{Start: uniqueEnd, End: seg.End}
	}

	l.insertMerge(unique)

	return unique, remaining, true
}

// InsertAll inserts every novel byte of seg into the list, returning each
// unique sub-interval that was newly added (in ascending order). Returns nil
// if seg contained nothing new.
func (l *List) InsertAll(seg Segment) []Segment {
	var uniques []Segment

	for {
		unique, remaining, ok := l.Insert(seg)
		if !ok {
			break
		}

		uniques = append(uniques, unique)

		if remaining.Empty() {
			break
		}
		seg = remaining
	}

	return uniques
}

// insertMerge inserts seg into the sorted list, coalescing with any
// overlapping or touching neighbours so the list invariant (ordered,
// disjoint, maximally merged) is preserved.
func (l *List) insertMerge(seg Segment) {
	i := sort.Search(len(l.segs), func(i int) bool { return l.segs[i].Start >= seg.Start })

	merged := seg
	start := i
	if i > 0 && l.segs[i-1].End >= merged.Start {
		merged.Start = l.segs[i-1].Start
		if l.segs[i-1].End > merged.End {
			merged.End = l.segs[i-1].End
		}
		start = i - 1
	}

	end := i
	for end < len(l.segs) && l.segs[end].Start <= merged.End {
		if l.segs[end].End > merged.End {
			merged.End = l.segs[end].End
		}
		end++
	}

	newSegs := make([]Segment, 0, len(l.segs)-(end-start)+1)
	newSegs = append(newSegs, l.segs[:start]...)
	newSegs = append(newSegs, merged)
	newSegs = append(newSegs, l.segs[end:]...)
	l.segs = newSegs
}

// Gaps returns the byte ranges not yet covered by the list, up to end. If
// end is 0, the last gap (from the end of the final segment onward) is
// reported with an open-ended Segment{End: 0} sentinel meaning "unbounded" —
// callers (ARQ status generation) translate that to the wire's
// offset.end=0xFFFF convention themselves.
func (l *List) Gaps(end uint32) []Segment {
	var gaps []Segment
	cursor := uint32(0)

	for _, s := range l.segs {
		if s.Start > cursor {
			gaps = append(gaps, Segment{Start: cursor, End: s.Start})
		}
		cursor = s.End
	}

	if end == 0 {
		gaps = append(gaps, Segment{Start: cursor, End: 0})
	} else if end > cursor {
		gaps = append(gaps, Segment{Start: cursor, End: end})
	}

	return gaps
}

// Covers reports whether the list consists of exactly the single segment
// [0, size), i.e. reassembly is complete.
func (l *List) Covers(size uint32) bool {
	return len(l.segs) == 1 && l.segs[0].Start == 0 && l.segs[0].End == size
}
