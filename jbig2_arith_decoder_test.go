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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArithDecoderBitsRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const n = 20000
	bits := make([]int, n)
	labels := make([]int, n)
	for i := range bits {
		labels[i] = rng.Intn(8)
		// 偏斜分布使各上下文在Qe表中充分迁移
		if rng.Intn(10) < labels[i] {
			bits[i] = 1
		}
	}
	enc := newMQEncoder()
	encCx := make([]ArithCtx, 8)
	for i, b := range bits {
		enc.encode(&encCx[labels[i]], b)
	}
	data := enc.flush()

	dec := NewArithDecoder(NewBitStream(data, 0, len(data)))
	decCx := make([]ArithCtx, 8)
	for i, want := range bits {
		require.Equal(t, want, dec.Decode(&decCx[labels[i]]), "bit %d", i)
	}
	require.Equal(t, encCx, decCx)
	require.False(t, dec.Exhausted())
}

func TestArithDecoderConstantRun(t *testing.T) {
	for _, bit := range []int{0, 1} {
		enc := newMQEncoder()
		var cx ArithCtx
		for i := 0; i < 5000; i++ {
			enc.encode(&cx, bit)
		}
		data := enc.flush()
		require.Less(t, len(data), 64)

		dec := NewArithDecoder(NewBitStream(data, 0, len(data)))
		var dcx ArithCtx
		for i := 0; i < 5000; i++ {
			require.Equal(t, bit, dec.Decode(&dcx))
		}
	}
}

func TestArithDecoderIntegers(t *testing.T) {
	values := []int32{0, 1, -1, 3, 4, -4, 19, 20, 83, 84, -339, 340, 4435, 4436, 100000, -2000000000, 2147483647}
	e := newTestEncoder()
	for _, v := range values {
		e.encodeInt(procIADW, v)
	}
	e.encodeOOB(procIADW)
	e.encodeInt(procIADW, 7)
	data := e.bytes()

	dc := NewDecodingContext(data, 0, len(data))
	for _, want := range values {
		v, ok := dc.decodeInt(procIADW)
		require.True(t, ok)
		require.Equal(t, want, v)
	}
	_, ok := dc.decodeInt(procIADW)
	require.False(t, ok, "OOB expected")
	v, ok := dc.decodeInt(procIADW)
	require.True(t, ok)
	require.EqualValues(t, 7, v)
}

func TestArithDecoderIAID(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, codeLen := range []int{0, 1, 3, 9, 17} {
		ids := make([]uint32, 200)
		e := newTestEncoder()
		e.cx[procIAID] = make([]ArithCtx, 1<<uint(max(codeLen, 16)))
		for i := range ids {
			if codeLen > 0 {
				ids[i] = uint32(rng.Int63n(int64(1) << uint(codeLen)))
			}
			e.encodeIAID(codeLen, ids[i])
		}
		data := e.bytes()

		dc := NewDecodingContext(data, 0, len(data))
		for i, want := range ids {
			require.Equal(t, want, dc.decodeIAID(codeLen), "codeLen %d index %d", codeLen, i)
		}
	}
}

func TestArithDecoderExhausted(t *testing.T) {
	dec := NewArithDecoder(NewBitStream(nil, 0, 0))
	var cx ArithCtx
	for i := 0; i < 10000 && !dec.Exhausted(); i++ {
		dec.Decode(&cx)
	}
	require.True(t, dec.Exhausted())
}

func TestArithDecoderStopsAtMarker(t *testing.T) {
	enc := newMQEncoder()
	var cx ArithCtx
	for i := 0; i < 100; i++ {
		enc.encode(&cx, i&1)
	}
	data := enc.flush()
	// 标记码之后的字节不应被读入
	tail := append(append([]byte{}, data...), 0x12, 0x34, 0x56)
	a := NewArithDecoder(NewBitStream(data, 0, len(data)))
	b := NewArithDecoder(NewBitStream(tail, 0, len(tail)))
	var ca, cb ArithCtx
	for i := 0; i < 400; i++ {
		require.Equal(t, a.Decode(&ca), b.Decode(&cb))
	}
	require.True(t, b.overrun > 0)
}
