// Package window implements the modular sliding window used to decide
// membership of a sequence number in the TX and RX direction of an RLC
// bearer.
package window

// Window is a half-open range [Base, Base+Width) over a modular sequence
// number space. All arithmetic is performed modulo the space the caller
// passes in via Has/Index, so wraparound at 2^sn_width is handled the same
// way regardless of where Base currently sits.
type Window struct {
	Base  uint32
	Width uint32
}

// New builds a Window starting at base with the given width.
func New(base, width uint32) Window {
	return Window{Base: base, Width: width}
}

// Has reports whether sn lies within the window, using modular distance
// bounded by mod (the sequence number space, i.e. 2^sn_width).
func (w Window) Has(sn uint32, mod uint32) bool {
	return w.Index(sn, mod) < w.Width
}

// Index returns the modular distance of sn from the window base, i.e. how
// many SNs ahead of Base sn is. A value >= Width means sn is outside the
// window (ahead of it); the caller cannot distinguish "just ahead" from
// "just behind" using Index alone, which mirrors the source's window
// arithmetic that only ever needs forward distance.
func (w Window) Index(sn uint32, mod uint32) uint32 {
	return ((sn - w.Base) % mod)
}

// MoveTo relocates the window base to pos.
func (w *Window) MoveTo(pos uint32) {
	w.Base = pos
}

// Move advances the window base by distance (modular wraparound is the
// caller's responsibility via mod, since Base is stored linearly mod 2^32
// and only ever compared through Index/Has).
func (w *Window) Move(distance uint32) {
	w.Base += distance
}

// End returns the SN immediately past the end of the window.
func (w Window) End() uint32 {
	return w.Base + w.Width
}
