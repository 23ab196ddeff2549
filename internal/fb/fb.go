// Package fb implements the Fragmented Buffer: a reference-counted chain of
// byte fragments with split/view/clone/cursor operations, modeled on the
// bytes.Buffer + intermediate-buffer streaming idiom the teacher uses in its
// SDO block-transfer object-dictionary streaming, generalized to a linked
// chain of owned or aliased ("view") storage regions.
package fb

// Fragment is a single node in a Chain. An owned Fragment holds storage it
// allocated itself; a view Fragment aliases a foreign byte slice and must
// never be resized or recycled by the chain that merely references it.
type Fragment struct {
	data   []byte
	isView bool
	next   *Fragment
}

// Len returns the number of bytes this fragment holds.
func (f *Fragment) Len() int {
	return len(f.data)
}

// Bytes exposes the fragment's storage directly. Callers must not retain
// slices from a view fragment beyond the lifetime of the buffer it aliases.
func (f *Fragment) Bytes() []byte {
	return f.data
}

// IsView reports whether the fragment aliases foreign storage rather than
// owning its own.
func (f *Fragment) IsView() bool {
	return f.isView
}

// Chain is a reference-counted list of Fragments representing one
// contiguous logical byte range, possibly assembled out of order.
type Chain struct {
	head    *Fragment
	tail    *Fragment
	len     int
	refs    int
}

// NewOwned builds a Chain that owns a copy of data.
func NewOwned(data []byte) *Chain {
	buf := make([]byte, len(data))
	copy(buf, data)
	frag := &Fragment{data: buf}
	return &Chain{head: frag, tail: frag, len: len(buf), refs: 1}
}

// NewView builds a Chain whose single fragment aliases data without copying
// it. The caller is responsible for ensuring data outlives the Chain.
func NewView(data []byte) *Chain {
	frag := &Fragment{data: data, isView: true}
	return &Chain{head: frag, tail: frag, len: len(data), refs: 1}
}

// Len returns the total number of bytes across all fragments in the chain.
func (c *Chain) Len() int {
	return c.len
}

// Retain increments the chain's reference count, used when a Chain is
// handed to more than one owner (e.g. a TX SDU buffer shared between the
// SDU store and a backend submit that retains the buffer for retransmit).
func (c *Chain) Retain() *Chain {
	c.refs++
	return c
}

// Release decrements the reference count, returning true once it reaches
// zero and the chain's owned fragments may be discarded. View fragments
// hold no storage to free; releasing a chain never touches the aliased
// backing array.
func (c *Chain) Release() bool {
	c.refs--
	return c.refs <= 0
}

// Append adds a fragment carrying a copy of data to the end of the chain.
func (c *Chain) Append(data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	c.appendFragment(&Fragment{data: buf})
}

// AppendView adds a fragment aliasing data (no copy) to the end of the
// chain.
func (c *Chain) AppendView(data []byte) {
	c.appendFragment(&Fragment{data: data, isView: true})
}

func (c *Chain) appendFragment(frag *Fragment) {
	if c.head == nil {
		c.head, c.tail = frag, frag
	} else {
		c.tail.next = frag
		c.tail = frag
	}
	c.len += len(frag.data)
}

// Clone returns a deep copy of the chain: every fragment, view or owned, is
// flattened into fresh owned storage. Used when a caller needs a stable
// snapshot independent of the original chain's lifetime (e.g. handing a
// retransmit buffer to the backend after the originating SDU may have been
// freed).
func (c *Chain) Clone() *Chain {
	return NewOwned(c.Flatten())
}

// Flatten copies every fragment's bytes into one contiguous slice.
func (c *Chain) Flatten() []byte {
	out := make([]byte, 0, c.len)
	for f := c.head; f != nil; f = f.next {
		out = append(out, f.data...)
	}
	return out
}

// Slice returns a new Chain that views the byte range [start, end) of c
// without copying. Panics if the range is out of bounds; callers are
// expected to have validated offsets against Len() first (mirrors the
// collaborator's split-on-demand semantics rather than pre-slicing eagerly).
func (c *Chain) Slice(start, end int) *Chain {
	if start < 0 || end > c.len || start > end {
		panic("fb: slice out of range")
	}
	out := &Chain{refs: 1}
	pos := 0
	for f := c.head; f != nil && pos < end; f = f.next {
		fStart := pos
		pos += len(f.data)
		lo, hi := max(start, fStart), min(end, pos)
		if lo < hi {
			out.AppendView(f.data[lo-fStart : hi-fStart])
		}
	}
	return out
}

// Cursor iterates a Chain fragment by fragment, exposing the headroom
// (bytes already consumed from the current fragment) and tailroom (bytes
// remaining in the current fragment), and reads across fragment boundaries
// without flattening the chain.
type Cursor struct {
	frag *Fragment
	pos  int
}

// NewCursor returns a Cursor positioned at the start of the chain.
func NewCursor(c *Chain) *Cursor {
	return &Cursor{frag: c.head}
}

// Tailroom returns how many unread bytes remain in the fragment currently
// under the cursor, or 0 once the chain is exhausted.
func (cur *Cursor) Tailroom() int {
	if cur.frag == nil {
		return 0
	}
	return len(cur.frag.data) - cur.pos
}

// Headroom returns how many bytes of the fragment currently under the
// cursor have already been read, or 0 once the chain is exhausted.
func (cur *Cursor) Headroom() int {
	if cur.frag == nil {
		return 0
	}
	return cur.pos
}

// Read copies up to len(dst) unread bytes from the chain into dst, advancing
// across fragment boundaries as needed, and returns the number copied.
func (cur *Cursor) Read(dst []byte) int {
	n := 0
	for n < len(dst) && cur.frag != nil {
		avail := cur.Tailroom()
		if avail == 0 {
			cur.frag = cur.frag.next
			cur.pos = 0
			continue
		}
		copyLen := len(dst) - n
		if copyLen > avail {
			copyLen = avail
		}
		copy(dst[n:n+copyLen], cur.frag.data[cur.pos:cur.pos+copyLen])
		n += copyLen
		cur.pos += copyLen
	}
	return n
}

// Done reports whether the cursor has exhausted the chain.
func (cur *Cursor) Done() bool {
	if cur.Tailroom() > 0 {
		return false
	}
	for f := cur.frag; f != nil; f = f.next {
		if f != cur.frag && len(f.data) > 0 {
			return false
		}
	}
	return true
}
