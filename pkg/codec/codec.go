// Package codec implements bit-level encode/decode of RLC PDU headers (AM
// data, UM data, TM data, AM status) parameterized by sequence-number
// width, generalizing the bit-flag accessor style of the teacher's
// SDOResponse.raw [8]byte into a proper sum type per field layout, as
// PDU is naturally {Data, Status} rather than one flags struct.
package codec

import (
	"errors"

	log "github.com/sirupsen/logrus"
)

// Sentinel decode errors. Callers in the rlc package recognize these with
// errors.Is and translate them into the broader Kind taxonomy.
var (
	ErrNeedMoreData = errors.New("codec: buffer too short to decode header")
	ErrUnsupported  = errors.New("codec: unsupported or reserved pdu format")
)

// Mode is the RLC service mode governing which header shape applies.
type Mode int

const (
	ModeTM Mode = iota
	ModeUM
	ModeAM
)

// SNWidth is the configured sequence-number field width in bits.
type SNWidth int

const (
	SN6  SNWidth = 6
	SN12 SNWidth = 12
	SN18 SNWidth = 18
)

// SegInfo is the 2-bit Segmentation Info field.
type SegInfo uint8

const (
	SIComplete SegInfo = 0b00
	SIFirst    SegInfo = 0b01
	SILast     SegInfo = 0b10
	SIMiddle   SegInfo = 0b11
)

// IsFirst reports whether this is the first (or the only) segment of an SDU.
func (si SegInfo) IsFirst() bool {
	return si == SIComplete || si == SIFirst
}

// IsLast reports whether this is the last (or the only) segment of an SDU.
func (si SegInfo) IsLast() bool {
	return si == SIComplete || si == SILast
}

// HasSO reports whether a data header of this SegInfo carries a segment
// offset field. has_so ⇔ ¬is_first.
func (si SegInfo) HasSO() bool {
	return !si.IsFirst()
}

// DataHeader is the decoded form of a TM/UM/AM data PDU header.
type DataHeader struct {
	SN     uint32
	SI     SegInfo
	SO     uint32
	Polled bool
	HasSN  bool
}

// StatusElement is one NACK entry in an AM status PDU.
type StatusElement struct {
	NackSN      uint32
	HasRange    bool
	Range       uint8
	HasOffset   bool
	OffsetStart uint32
	OffsetEnd   uint32
	HasMore     bool
}

// StatusHeader is the decoded form of an AM status PDU.
type StatusHeader struct {
	AckSN    uint32
	Elements []StatusElement
}

// PDU is the decoded sum type: exactly one of Data or Status is meaningful,
// selected by IsStatus.
type PDU struct {
	IsStatus bool
	Data     DataHeader
	Status   StatusHeader
}

// EncodePDU appends the appropriate header for pdu and returns it; the
// caller is responsible for concatenating the SDU payload bytes after it.
func EncodePDU(mode Mode, width SNWidth, pdu PDU) ([]byte, error) {
	if pdu.IsStatus {
		if mode != ModeAM {
			return nil, ErrUnsupported
		}
		return EncodeStatus(width, pdu.Status)
	}
	return EncodeData(mode, width, pdu.Data)
}

// DecodePDU consumes and strips a header from buf, returning the decoded
// PDU and the number of header bytes consumed. For AM, the leading DF bit
// dispatches between a data and a status header.
func DecodePDU(mode Mode, width SNWidth, buf []byte) (PDU, int, error) {
	if mode == ModeAM {
		if len(buf) == 0 {
			return PDU{}, 0, ErrNeedMoreData
		}
		if buf[0]>>7 == 0 {
			hdr, n, err := DecodeStatus(width, buf)
			if err != nil {
				return PDU{}, 0, err
			}
			return PDU{IsStatus: true, Status: hdr}, n, nil
		}
	}

	hdr, n, err := DecodeData(mode, width, buf)
	if err != nil {
		return PDU{}, 0, err
	}
	return PDU{Data: hdr}, n, nil
}

// EncodeData builds a TM/UM/AM data header.
func EncodeData(mode Mode, width SNWidth, hdr DataHeader) ([]byte, error) {
	switch mode {
	case ModeTM:
		return nil, nil
	case ModeUM:
		return encodeUMData(width, hdr)
	case ModeAM:
		return encodeAMData(width, hdr)
	default:
		return nil, ErrUnsupported
	}
}

func encodeUMData(width SNWidth, hdr DataHeader) ([]byte, error) {
	w := &bitWriter{}

	if hdr.SI == SIComplete {
		// Complete-SDU UMD header is always exactly one octet, regardless
		// of the configured SN width: no SN field is carried at all.
		w.WriteBits(uint32(SIComplete), 2)
		w.WriteBits(0, 6)
		return w.Finalize(), nil
	}

	w.WriteBits(uint32(hdr.SI), 2)
	switch width {
	case SN6:
		w.WriteBits(hdr.SN, 6)
	case SN12:
		w.WriteBits(0, 2) // reserved
		w.WriteBits(hdr.SN, 12)
	default:
		return nil, ErrUnsupported
	}
	if hdr.SI.HasSO() {
		w.WriteBits(hdr.SO, 16)
	}
	return w.Finalize(), nil
}

func encodeAMData(width SNWidth, hdr DataHeader) ([]byte, error) {
	w := &bitWriter{}
	w.WriteBits(1, 1) // DF=1: data
	w.WriteBits(boolBit(hdr.Polled), 1)
	w.WriteBits(uint32(hdr.SI), 2)

	switch width {
	case SN12:
		w.WriteBits(hdr.SN, 12)
	case SN18:
		w.WriteBits(0, 2) // reserved
		w.WriteBits(hdr.SN, 18)
	default:
		return nil, ErrUnsupported
	}

	if hdr.SI.HasSO() {
		w.WriteBits(hdr.SO, 16)
	}
	return w.Finalize(), nil
}

// DecodeData consumes a TM/UM/AM data header from buf.
func DecodeData(mode Mode, width SNWidth, buf []byte) (DataHeader, int, error) {
	switch mode {
	case ModeTM:
		return DataHeader{SI: SIComplete, HasSN: false}, 0, nil
	case ModeUM:
		return decodeUMData(width, buf)
	case ModeAM:
		return decodeAMData(width, buf)
	default:
		return DataHeader{}, 0, ErrUnsupported
	}
}

func decodeUMData(width SNWidth, buf []byte) (DataHeader, int, error) {
	r := newBitReader(buf)

	siVal, err := r.ReadBits(2)
	if err != nil {
		return DataHeader{}, 0, err
	}
	si := SegInfo(siVal)

	if si == SIComplete {
		if _, err := r.ReadBits(6); err != nil {
			return DataHeader{}, 0, err
		}
		return DataHeader{SI: SIComplete, HasSN: false}, r.BytesConsumed(), nil
	}

	var sn uint32
	switch width {
	case SN6:
		sn, err = r.ReadBits(6)
	case SN12:
		if _, err = r.ReadBits(2); err == nil {
			sn, err = r.ReadBits(12)
		}
	default:
		return DataHeader{}, 0, ErrUnsupported
	}
	if err != nil {
		return DataHeader{}, 0, err
	}

	hdr := DataHeader{SI: si, SN: sn, HasSN: true}
	if si.HasSO() {
		so, err := r.ReadBits(16)
		if err != nil {
			return DataHeader{}, 0, err
		}
		hdr.SO = so
	}
	return hdr, r.BytesConsumed(), nil
}

func decodeAMData(width SNWidth, buf []byte) (DataHeader, int, error) {
	r := newBitReader(buf)

	if _, err := r.ReadBits(1); err != nil { // DF, already dispatched by caller
		return DataHeader{}, 0, err
	}
	polled, err := r.ReadBits(1)
	if err != nil {
		return DataHeader{}, 0, err
	}
	siVal, err := r.ReadBits(2)
	if err != nil {
		return DataHeader{}, 0, err
	}
	si := SegInfo(siVal)

	var sn uint32
	switch width {
	case SN12:
		sn, err = r.ReadBits(12)
	case SN18:
		if _, err = r.ReadBits(2); err == nil {
			sn, err = r.ReadBits(18)
		}
	default:
		return DataHeader{}, 0, ErrUnsupported
	}
	if err != nil {
		return DataHeader{}, 0, err
	}

	hdr := DataHeader{SI: si, SN: sn, HasSN: true, Polled: polled == 1}
	if si.HasSO() {
		so, err := r.ReadBits(16)
		if err != nil {
			return DataHeader{}, 0, err
		}
		hdr.SO = so
	}
	return hdr, r.BytesConsumed(), nil
}

// statusE1Pad returns the width-dependent reserved-bit pad that follows the
// header's own E1 bit, bringing the fixed status header to a byte boundary.
func statusE1Pad(width SNWidth) (int, error) {
	switch width {
	case SN12:
		return 7, nil
	case SN18:
		return 1, nil
	default:
		return 0, ErrUnsupported
	}
}

// EncodeStatus builds an AM status PDU header plus its chain of elements.
func EncodeStatus(width SNWidth, hdr StatusHeader) ([]byte, error) {
	pad, err := statusE1Pad(width)
	if err != nil {
		return nil, err
	}

	w := &bitWriter{}
	w.WriteBits(0, 1) // DF=0: status
	w.WriteBits(0, 3) // CPT=000
	w.WriteBits(hdr.AckSN, int(width))
	w.WriteBits(boolBit(len(hdr.Elements) > 0), 1)
	w.WriteBits(0, pad)

	for i, el := range hdr.Elements {
		encodeStatusElement(w, width, el, i < len(hdr.Elements)-1)
	}

	return w.Finalize(), nil
}

func encodeStatusElement(w *bitWriter, width SNWidth, el StatusElement, hasMore bool) {
	w.WriteBits(el.NackSN, int(width))
	w.WriteBits(boolBit(hasMore), 1)
	w.WriteBits(boolBit(el.HasOffset), 1)
	w.WriteBits(boolBit(el.HasRange), 1)

	used := int(width) + 3
	if pad := (8 - used%8) % 8; pad > 0 {
		w.WriteBits(0, pad)
	}

	if el.HasOffset {
		w.WriteBits(el.OffsetStart, 16)
		w.WriteBits(el.OffsetEnd, 16)
	}
	if el.HasRange {
		w.WriteBits(uint32(el.Range), 8)
	}
}

// DecodeStatus consumes an AM status PDU header and its element chain.
func DecodeStatus(width SNWidth, buf []byte) (StatusHeader, int, error) {
	pad, err := statusE1Pad(width)
	if err != nil {
		return StatusHeader{}, 0, err
	}

	r := newBitReader(buf)

	if _, err := r.ReadBits(1); err != nil { // DF
		return StatusHeader{}, 0, err
	}
	cpt, err := r.ReadBits(3)
	if err != nil {
		return StatusHeader{}, 0, err
	}
	if cpt != 0 {
		log.Warnf("codec: status pdu with non-zero CPT=%d", cpt)
		return StatusHeader{}, 0, ErrUnsupported
	}

	ackSN, err := r.ReadBits(int(width))
	if err != nil {
		return StatusHeader{}, 0, err
	}
	hasElem, err := r.ReadBits(1)
	if err != nil {
		return StatusHeader{}, 0, err
	}
	if _, err := r.ReadBits(pad); err != nil {
		return StatusHeader{}, 0, err
	}

	hdr := StatusHeader{AckSN: ackSN}

	more := hasElem == 1
	for more {
		el, err := decodeStatusElement(r, width)
		if err != nil {
			return StatusHeader{}, 0, err
		}
		hdr.Elements = append(hdr.Elements, el)
		more = el.HasMore
	}

	return hdr, r.BytesConsumed(), nil
}

func decodeStatusElement(r *bitReader, width SNWidth) (StatusElement, error) {
	nackSN, err := r.ReadBits(int(width))
	if err != nil {
		return StatusElement{}, err
	}
	e1, err := r.ReadBits(1)
	if err != nil {
		return StatusElement{}, err
	}
	e2, err := r.ReadBits(1)
	if err != nil {
		return StatusElement{}, err
	}
	e3, err := r.ReadBits(1)
	if err != nil {
		return StatusElement{}, err
	}

	used := int(width) + 3
	if pad := (8 - used%8) % 8; pad > 0 {
		if _, err := r.ReadBits(pad); err != nil {
			return StatusElement{}, err
		}
	}

	el := StatusElement{NackSN: nackSN, HasMore: e1 == 1, HasOffset: e2 == 1, HasRange: e3 == 1}

	if el.HasOffset {
		start, err := r.ReadBits(16)
		if err != nil {
			return StatusElement{}, err
		}
		end, err := r.ReadBits(16)
		if err != nil {
			return StatusElement{}, err
		}
		el.OffsetStart, el.OffsetEnd = start, end
	}
	if el.HasRange {
		rng, err := r.ReadBits(8)
		if err != nil {
			return StatusElement{}, err
		}
		el.Range = uint8(rng)
	}

	return el, nil
}
