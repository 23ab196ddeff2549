package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUMCompleteSDUHeaderIsOneByte(t *testing.T) {
	hdr := DataHeader{SI: SIComplete}
	buf, err := EncodeData(ModeUM, SN6, hdr)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, buf)

	decoded, n, err := DecodeData(ModeUM, SN6, buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, decoded.HasSN)
	assert.Equal(t, SIComplete, decoded.SI)
}

func TestUMSegmentedRoundTrip12Bit(t *testing.T) {
	cases := []DataHeader{
		{SI: SIFirst, SN: 7},
		{SI: SIMiddle, SN: 7, SO: 2},
		{SI: SILast, SN: 7, SO: 4},
	}

	for _, hdr := range cases {
		hdr.HasSN = true
		buf, err := EncodeData(ModeUM, SN12, hdr)
		require.NoError(t, err)

		decoded, n, err := DecodeData(ModeUM, SN12, buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, hdr.SI, decoded.SI)
		assert.Equal(t, hdr.SN, decoded.SN)
		if hdr.SI.HasSO() {
			assert.Equal(t, hdr.SO, decoded.SO)
		}
	}
}

func TestAMDataRoundTrip12And18Bit(t *testing.T) {
	widths := []SNWidth{SN12, SN18}
	for _, width := range widths {
		hdr := DataHeader{SI: SIMiddle, SN: 1000, SO: 300, Polled: true, HasSN: true}
		buf, err := EncodeData(ModeAM, width, hdr)
		require.NoError(t, err)

		decoded, n, err := DecodeData(ModeAM, width, buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, hdr.SN, decoded.SN)
		assert.Equal(t, hdr.SI, decoded.SI)
		assert.Equal(t, hdr.SO, decoded.SO)
		assert.True(t, decoded.Polled)
	}
}

func TestAMStatusRoundTripWithRangeAndOffsetElements(t *testing.T) {
	hdr := StatusHeader{
		AckSN: 42,
		Elements: []StatusElement{
			{NackSN: 5, HasRange: true, Range: 3},
			{NackSN: 10, HasOffset: true, OffsetStart: 4, OffsetEnd: 0xFFFF},
			{NackSN: 12},
		},
	}

	buf, err := EncodeStatus(SN12, hdr)
	require.NoError(t, err)

	decoded, n, err := DecodeStatus(SN12, buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, hdr.AckSN, decoded.AckSN)
	require.Len(t, decoded.Elements, 3)

	assert.True(t, decoded.Elements[0].HasRange)
	assert.EqualValues(t, 3, decoded.Elements[0].Range)
	assert.True(t, decoded.Elements[0].HasMore)

	assert.True(t, decoded.Elements[1].HasOffset)
	assert.EqualValues(t, 4, decoded.Elements[1].OffsetStart)
	assert.EqualValues(t, 0xFFFF, decoded.Elements[1].OffsetEnd)
	assert.True(t, decoded.Elements[1].HasMore)

	assert.False(t, decoded.Elements[2].HasMore)
}

func TestAMStatus18BitAckSN(t *testing.T) {
	hdr := StatusHeader{AckSN: 200000}
	buf, err := EncodeStatus(SN18, hdr)
	require.NoError(t, err)

	decoded, n, err := DecodeStatus(SN18, buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.EqualValues(t, 200000, decoded.AckSN)
	assert.Empty(t, decoded.Elements)
}

func TestDecodeStatusRejectsNonZeroCPT(t *testing.T) {
	buf := []byte{0b00010000, 0x00, 0x00}
	_, _, err := DecodeStatus(SN12, buf)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDecodeDataNeedsMoreData(t *testing.T) {
	hdr := DataHeader{SI: SIMiddle, SN: 7, SO: 4, HasSN: true}
	buf, err := EncodeData(ModeUM, SN12, hdr)
	require.NoError(t, err)

	_, _, err = DecodeData(ModeUM, SN12, buf[:1])
	assert.ErrorIs(t, err, ErrNeedMoreData)
}

func TestDecodePDUDispatchesAMStatusVsData(t *testing.T) {
	statusBuf, err := EncodeStatus(SN12, StatusHeader{AckSN: 3})
	require.NoError(t, err)
	pdu, _, err := DecodePDU(ModeAM, SN12, statusBuf)
	require.NoError(t, err)
	assert.True(t, pdu.IsStatus)

	dataBuf, err := EncodeData(ModeAM, SN12, DataHeader{SI: SIComplete, HasSN: true})
	require.NoError(t, err)
	pdu, _, err = DecodePDU(ModeAM, SN12, dataBuf)
	require.NoError(t, err)
	assert.False(t, pdu.IsStatus)
}

func TestTMHasNoHeader(t *testing.T) {
	buf, err := EncodeData(ModeTM, SN6, DataHeader{})
	require.NoError(t, err)
	assert.Empty(t, buf)

	hdr, n, err := DecodeData(ModeTM, SN6, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, hdr.HasSN)
}
