// Copyright 2026 肖其顿 (XIAO QI DUN)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jbig2dec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFileHeader(t *testing.T) {
	data := append(append([]byte{}, fileMagic...), 0x01, 0, 0, 0, 3)
	fh, off, err := ParseFileHeader(data)
	require.NoError(t, err)
	require.False(t, fh.RandomAccess)
	require.True(t, fh.PageCountKnown)
	require.EqualValues(t, 3, fh.PageCount)
	require.Equal(t, 13, off)

	data = append(append([]byte{}, fileMagic...), 0x02)
	fh, off, err = ParseFileHeader(data)
	require.NoError(t, err)
	require.True(t, fh.RandomAccess)
	require.False(t, fh.PageCountKnown)
	require.Equal(t, 9, off)

	_, _, err = ParseFileHeader([]byte("\x97JB2\r\n\x1a\x0b\x01"))
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestReadSegmentHeaderShortForm(t *testing.T) {
	seg := testSegment{number: 5, typ: SegImmediateTextRegion, refs: []uint32{1, 3}, page: 2, data: make([]byte, 10)}
	raw := seg.header()
	h, err := ReadSegmentHeader(raw, 0, len(raw), false)
	require.NoError(t, err)
	require.EqualValues(t, 5, h.Number)
	require.Equal(t, SegImmediateTextRegion, h.Type)
	require.Equal(t, []uint32{1, 3}, h.ReferredTo)
	require.EqualValues(t, 2, h.PageAssociation)
	require.EqualValues(t, 10, h.Length)
	require.Equal(t, len(raw), h.headerEnd)
}

func TestReadSegmentHeaderReferenceWidths(t *testing.T) {
	for _, tc := range []struct {
		number uint32
		width  int
	}{
		{256, 1}, {257, 2}, {65536, 2}, {65537, 4},
	} {
		seg := testSegment{number: tc.number, typ: SegEndOfPage, refs: []uint32{7, 9}, page: 1}
		raw := seg.header()
		require.Equal(t, 4+1+1+2*tc.width+1+4, len(raw))
		h, err := ReadSegmentHeader(raw, 0, len(raw), false)
		require.NoError(t, err)
		require.Equal(t, []uint32{7, 9}, h.ReferredTo)
	}
}

func TestReadSegmentHeaderLongPage(t *testing.T) {
	seg := testSegment{number: 1, typ: SegEndOfPage, page: 0x12345}
	raw := seg.header()
	h, err := ReadSegmentHeader(raw, 0, len(raw), false)
	require.NoError(t, err)
	require.EqualValues(t, 0x12345, h.PageAssociation)
}

func TestReadSegmentHeaderExtendedCount(t *testing.T) {
	var raw []byte
	raw = binary.BigEndian.AppendUint32(raw, 20)
	raw = append(raw, byte(SegImmediateTextRegion)|0x80)
	raw = binary.BigEndian.AppendUint32(raw, 7<<29|9)
	// 保留位: (9+1) 位向上取整为 2 字节
	raw = append(raw, 0xAA, 0x03)
	for i := 0; i < 9; i++ {
		raw = append(raw, byte(i+1))
	}
	raw = append(raw, 1)
	raw = binary.BigEndian.AppendUint32(raw, 0)

	h, err := ReadSegmentHeader(raw, 0, len(raw), false)
	require.NoError(t, err)
	require.True(t, h.DeferredNonRetain)
	require.Equal(t, []byte{0xAA, 0x03}, h.RetainBits)
	require.Equal(t, []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9}, h.ReferredTo)
	require.Equal(t, len(raw), h.headerEnd)
}

func TestReadSegmentHeaderInvalid(t *testing.T) {
	for _, typ := range []byte{1, 2, 3, 5, 17, 41, 47, 54, 61, 63} {
		raw := []byte{0, 0, 0, 1, typ, 0, 1, 0, 0, 0, 0}
		_, err := ReadSegmentHeader(raw, 0, len(raw), false)
		require.Error(t, err, "type %d", typ)
	}
	for _, count := range []byte{5, 6} {
		raw := []byte{0, 0, 0, 1, byte(SegEndOfPage), count << 5, 1, 0, 0, 0, 0}
		_, err := ReadSegmentHeader(raw, 0, len(raw), false)
		require.Error(t, err)
	}
	_, err := ReadSegmentHeader([]byte{0, 0, 0, 1, byte(SegEndOfPage)}, 0, 5, false)
	require.Error(t, err)
}

func TestReadSegmentHeaderUnknownLength(t *testing.T) {
	img := imageFromRows("#..#", ".##.", "#..#")
	body := genericRegionData(img, 0, 0, ComposeOr, 0, false)
	body = binary.BigEndian.AppendUint32(body, 3)
	k := len(body) - 6
	unknown := uint32(unknownLength)
	seg := testSegment{number: 2, typ: SegImmediateGenericRegion, page: 1, data: body, length: &unknown}
	raw := append(seg.header(), body...)
	raw = append(raw, 0xde, 0xad)

	h, err := ReadSegmentHeader(raw, 0, len(raw), true)
	require.NoError(t, err)
	require.EqualValues(t, k+6, h.Length)

	_, err = ReadSegmentHeader(raw, 0, len(raw), false)
	require.ErrorIs(t, err, ErrUnknownLength)

	seg.typ = SegImmediateTextRegion
	raw = append(seg.header(), body...)
	_, err = ReadSegmentHeader(raw, 0, len(raw), true)
	require.ErrorIs(t, err, ErrUnknownLength)
}

func TestReadSegmentsSequential(t *testing.T) {
	data := sequentialSegments(
		testSegment{number: 0, typ: SegPageInformation, page: 1, data: pageInfoBytes(8, 8, 0, 0)},
		testSegment{number: 1, typ: SegEndOfPage, page: 1},
		testSegment{number: 2, typ: SegEndOfFile},
		testSegment{number: 3, typ: SegEndOfPage, page: 1},
	)
	segs, err := ReadSegments(data, 0, len(data), false)
	require.NoError(t, err)
	require.Len(t, segs, 3)
	require.Equal(t, pageInfoBytes(8, 8, 0, 0), segs[0].Data())
	require.Empty(t, segs[1].Data())
	require.Equal(t, SegEndOfFile, segs[2].Header.Type)
}

func TestReadSegmentsRandomAccess(t *testing.T) {
	a := testSegment{number: 0, typ: SegPageInformation, page: 1, data: pageInfoBytes(8, 8, 0, 0)}
	b := testSegment{number: 1, typ: SegExtension, page: 1, data: []byte{0, 0, 0, 1, 9}}
	c := testSegment{number: 2, typ: SegEndOfFile}
	var data []byte
	for _, s := range []testSegment{a, b, c} {
		data = append(data, s.header()...)
	}
	data = append(data, a.data...)
	data = append(data, b.data...)

	segs, err := ReadSegments(data, 0, len(data), true)
	require.NoError(t, err)
	require.Len(t, segs, 3)
	require.Equal(t, a.data, segs[0].Data())
	require.Equal(t, b.data, segs[1].Data())
	require.Empty(t, segs[2].Data())
}

func TestReadSegmentsTruncated(t *testing.T) {
	data := sequentialSegments(testSegment{number: 0, typ: SegPageInformation, page: 1, data: pageInfoBytes(8, 8, 0, 0)})
	_, err := ReadSegments(data[:len(data)-3], 0, len(data)-3, false)
	require.Error(t, err)
}

func TestSegmentTypeString(t *testing.T) {
	require.Equal(t, "PageInformation", SegPageInformation.String())
	require.Equal(t, "SegmentType(1)", SegmentType(1).String())
	require.True(t, SegTables.Valid())
	require.False(t, SegmentType(63).Valid())
}
