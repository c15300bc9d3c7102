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
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"testing"
)

// testLogger 丢弃输出的日志
func testLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureLogger 记录Debug以上级别日志的文本
func captureLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// mqEncoder MQ算术编码器, 仅用于构造测试数据
type mqEncoder struct {
	a   uint32
	c   uint32
	ct  int
	out []byte
}

func newMQEncoder() *mqEncoder {
	// out[0] 为占位字节, 刷新时丢弃
	return &mqEncoder{a: 0x8000, ct: 12, out: []byte{0}}
}

func (e *mqEncoder) encode(cx *ArithCtx, bit int) {
	qe := &kQeTable[cx.i]
	q := uint32(qe.Qe)
	e.a -= q
	if bit == cx.mpsBit() {
		if e.a&0x8000 != 0 {
			e.c += q
			return
		}
		if e.a < q {
			e.a = q
		} else {
			e.c += q
		}
		cx.i = qe.NMPS
		e.renormalize()
		return
	}
	if e.a < q {
		e.c += q
	} else {
		e.a = q
	}
	if qe.Switch {
		cx.mps = !cx.mps
	}
	cx.i = qe.NLPS
	e.renormalize()
}

func (e *mqEncoder) renormalize() {
	for {
		e.a <<= 1
		e.c <<= 1
		e.ct--
		if e.ct == 0 {
			e.byteOut()
		}
		if e.a&0x8000 != 0 {
			return
		}
	}
}

func (e *mqEncoder) byteOut() {
	last := len(e.out) - 1
	if e.out[last] == 0xff {
		e.out = append(e.out, byte(e.c>>20))
		e.c &= 0xfffff
		e.ct = 7
		return
	}
	if e.c < 0x8000000 {
		e.out = append(e.out, byte(e.c>>19))
		e.c &= 0x7ffff
		e.ct = 8
		return
	}
	e.out[last]++
	if e.out[last] == 0xff {
		e.c &= 0x7ffffff
		e.out = append(e.out, byte(e.c>>20))
		e.c &= 0xfffff
		e.ct = 7
		return
	}
	e.out = append(e.out, byte(e.c>>19))
	e.c &= 0x7ffff
	e.ct = 8
}

// flush 结束编码, 以 FF AC 标记收尾
func (e *mqEncoder) flush() []byte {
	temp := e.c + e.a
	e.c |= 0xffff
	if e.c >= temp {
		e.c -= 0x8000
	}
	e.c <<= uint(e.ct)
	e.byteOut()
	e.c <<= uint(e.ct)
	e.byteOut()
	if e.out[len(e.out)-1] != 0xff {
		e.out = append(e.out, 0xff)
	}
	e.out = append(e.out, 0xac)
	return e.out[1:]
}

// testEncoder 按过程维护概率表的编码器, 与 DecodingContext 对应
type testEncoder struct {
	mq *mqEncoder
	cx [procCount][]ArithCtx
}

func newTestEncoder() *testEncoder {
	return &testEncoder{mq: newMQEncoder()}
}

func (e *testEncoder) contexts(p procedure) []ArithCtx {
	if e.cx[p] == nil {
		e.cx[p] = make([]ArithCtx, contextTableSize)
	}
	return e.cx[p]
}

func (e *testEncoder) bytes() []byte {
	return e.mq.flush()
}

// encodeBitsIA IAx过程的上下文推进
func (e *testEncoder) encodeBitsIA(cx []ArithCtx, prev *int, v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		bit := int(v>>uint(i)) & 1
		e.mq.encode(&cx[*prev], bit)
		if *prev < 256 {
			*prev = *prev<<1 | bit
		} else {
			*prev = (*prev<<1|bit)&511 | 256
		}
	}
}

func (e *testEncoder) encodeInt(p procedure, v int32) {
	cx := e.contexts(p)
	prev := 1
	sign := uint32(0)
	mag := int64(v)
	if v < 0 {
		sign = 1
		mag = -mag
	}
	e.encodeBitsIA(cx, &prev, sign, 1)
	tier := len(arithIntRange) - 1
	for i, r := range arithIntRange[:len(arithIntRange)-1] {
		if mag < int64(r.offset)+int64(1)<<uint(r.bits) {
			tier = i
			break
		}
	}
	for i := 0; i < tier; i++ {
		e.encodeBitsIA(cx, &prev, 1, 1)
	}
	if tier < len(arithIntRange)-1 {
		e.encodeBitsIA(cx, &prev, 0, 1)
	}
	r := arithIntRange[tier]
	e.encodeBitsIA(cx, &prev, uint32(mag-int64(r.offset)), r.bits)
}

func (e *testEncoder) encodeOOB(p procedure) {
	cx := e.contexts(p)
	prev := 1
	e.encodeBitsIA(cx, &prev, 1, 1)
	e.encodeBitsIA(cx, &prev, 0, 1)
	e.encodeBitsIA(cx, &prev, 0, 2)
}

func (e *testEncoder) encodeIAID(codeLen int, id uint32) {
	cx := e.contexts(procIAID)
	prev := 1
	for i := codeLen - 1; i >= 0; i-- {
		bit := int(id>>uint(i)) & 1
		e.mq.encode(&cx[prev], bit)
		prev = prev<<1 | bit
	}
}

// sortedTemplate 与通用路径一致的模板排序
func sortedTemplate(template uint8, at []Point) []Point {
	tmpl := append(append([]Point{}, kCodingTemplates[template]...), at...)
	sort.SliceStable(tmpl, func(a, b int) bool {
		if tmpl[a].Y != tmpl[b].Y {
			return tmpl[a].Y < tmpl[b].Y
		}
		return tmpl[a].X < tmpl[b].X
	})
	return tmpl
}

// naiveLabel 逐像素重新计算的上下文
func naiveLabel(img *Image, x, y int, tmpl []Point) int {
	label := 0
	for _, p := range tmpl {
		label = label<<1 | img.GetPixel(x+p.X, y+p.Y)
	}
	return label
}

func rowsEqual(img *Image, y int) bool {
	for x := 0; x < img.Width(); x++ {
		if img.GetPixel(x, y) != img.GetPixel(x, y-1) {
			return false
		}
	}
	return true
}

func (e *testEncoder) encodeGeneric(img *Image, template uint8, at []Point, tpgdon bool) {
	cx := e.contexts(procGB)
	tmpl := sortedTemplate(template, at)
	ltp := 0
	for y := 0; y < img.Height(); y++ {
		if tpgdon {
			same := 0
			if rowsEqual(img, y) {
				same = 1
			}
			e.mq.encode(&cx[kTypicalContexts[template]], same^ltp)
			ltp = same
			if same == 1 {
				continue
			}
		}
		for x := 0; x < img.Width(); x++ {
			e.mq.encode(&cx[naiveLabel(img, x, y, tmpl)], img.GetPixel(x, y))
		}
	}
}

func (e *testEncoder) encodeRefinement(img, ref *Image, template uint8, dx, dy int, at []Point) {
	cx := e.contexts(procGR)
	tmpl := kRefinementTemplates[template]
	coding, reference := tmpl.coding, tmpl.reference
	if template == 0 {
		coding = append(append([]Point{}, coding...), at[0])
		reference = append(append([]Point{}, reference...), at[1])
	}
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			label := 0
			for _, p := range coding {
				label = label<<1 | img.GetPixel(x+p.X, y+p.Y)
			}
			for _, p := range reference {
				label = label<<1 | ref.GetPixel(x+p.X-dx, y+p.Y-dy)
			}
			e.mq.encode(&cx[label], img.GetPixel(x, y))
		}
	}
}

// randomImage 按密度生成随机位图
func randomImage(rng *rand.Rand, w, h int, density float64) *Image {
	img := NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if rng.Float64() < density {
				img.SetPixel(x, y, 1)
			}
		}
	}
	return img
}

// imageFromRows 由字符行构造位图, '#' 为黑
func imageFromRows(rows ...string) *Image {
	w := 0
	if len(rows) > 0 {
		w = len(rows[0])
	}
	img := NewImage(w, len(rows))
	for y, r := range rows {
		for x, c := range r {
			if c == '#' {
				img.SetPixel(x, y, 1)
			}
		}
	}
	return img
}

// bitWriter 高位在前的位写入器
type bitWriter struct {
	buf  []byte
	nbit uint
}

func (w *bitWriter) writeBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		if w.nbit == 0 {
			w.buf = append(w.buf, 0)
		}
		if (v>>uint(i))&1 != 0 {
			w.buf[len(w.buf)-1] |= 0x80 >> w.nbit
		}
		w.nbit = (w.nbit + 1) & 7
	}
}

func (w *bitWriter) align() {
	w.nbit = 0
}

func (w *bitWriter) writeBytes(b []byte) {
	w.align()
	w.buf = append(w.buf, b...)
}

// writeHuffman 按表行编码一个值, oob为true时写OOB码
func (w *bitWriter) writeHuffman(lines []TableLine, v int32, oob bool) {
	for _, l := range lines {
		if l.PrefixLength == 0 {
			continue
		}
		if oob {
			if l.IsOOB {
				w.writeBits(l.PrefixCode, l.PrefixLength)
				return
			}
			continue
		}
		if l.IsOOB {
			continue
		}
		var offset int64
		if l.IsLower {
			offset = int64(l.RangeLow) - int64(v)
		} else {
			offset = int64(v) - int64(l.RangeLow)
		}
		if offset < 0 || (l.RangeLength < 32 && offset >= int64(1)<<uint(l.RangeLength)) {
			continue
		}
		w.writeBits(l.PrefixCode, l.PrefixLength)
		w.writeBits(uint32(offset), l.RangeLength)
		return
	}
	panic("value not covered by table")
}

// testSegment 测试用段描述
type testSegment struct {
	number uint32
	typ    SegmentType
	refs   []uint32
	page   uint32
	data   []byte
	length *uint32
}

// header 编码段头, 引用数不超过4
func (s testSegment) header() []byte {
	var b []byte
	b = binary.BigEndian.AppendUint32(b, s.number)
	flags := byte(s.typ)
	if s.page > 0xff {
		flags |= 0x40
	}
	b = append(b, flags, byte(len(s.refs))<<5)
	for _, r := range s.refs {
		switch {
		case s.number <= 256:
			b = append(b, byte(r))
		case s.number <= 65536:
			b = binary.BigEndian.AppendUint16(b, uint16(r))
		default:
			b = binary.BigEndian.AppendUint32(b, r)
		}
	}
	if s.page > 0xff {
		b = binary.BigEndian.AppendUint32(b, s.page)
	} else {
		b = append(b, byte(s.page))
	}
	length := uint32(len(s.data))
	if s.length != nil {
		length = *s.length
	}
	return binary.BigEndian.AppendUint32(b, length)
}

// sequentialSegments 顺序组织的段序列
func sequentialSegments(segs ...testSegment) []byte {
	var b []byte
	for _, s := range segs {
		b = append(b, s.header()...)
		b = append(b, s.data...)
	}
	return b
}

// fileWithSegments 带文件头的顺序组织文件, 页数已知为1
func fileWithSegments(segs ...testSegment) []byte {
	b := append([]byte{}, fileMagic...)
	b = append(b, 0x01)
	b = binary.BigEndian.AppendUint32(b, 1)
	return append(b, sequentialSegments(segs...)...)
}

func regionInfoBytes(w, h uint32, x, y int32, op ComposeOp) []byte {
	var b []byte
	b = binary.BigEndian.AppendUint32(b, w)
	b = binary.BigEndian.AppendUint32(b, h)
	b = binary.BigEndian.AppendUint32(b, uint32(x))
	b = binary.BigEndian.AppendUint32(b, uint32(y))
	return append(b, byte(op))
}

// pageInfoBytes 页面信息段数据
func pageInfoBytes(w, h uint32, flags byte, striping uint16) []byte {
	var b []byte
	b = binary.BigEndian.AppendUint32(b, w)
	b = binary.BigEndian.AppendUint32(b, h)
	b = binary.BigEndian.AppendUint32(b, 0)
	b = binary.BigEndian.AppendUint32(b, 0)
	b = append(b, flags)
	return binary.BigEndian.AppendUint16(b, striping)
}

// nominalAT 模板的标称AT像素
func nominalAT(template uint8) []Point {
	switch template {
	case 0:
		return kNominalAT0[:]
	case 1:
		return []Point{{3, -1}}
	}
	return []Point{{2, -1}}
}

// atBytes AT像素的字节表示
func atBytes(at []Point) []byte {
	var b []byte
	for _, p := range at {
		b = append(b, byte(int8(p.X)), byte(int8(p.Y)))
	}
	return b
}

// genericRegionData 算术编码的通用区域段数据
func genericRegionData(img *Image, x, y int32, op ComposeOp, template uint8, tpgdon bool) []byte {
	at := nominalAT(template)
	b := regionInfoBytes(uint32(img.Width()), uint32(img.Height()), x, y, op)
	flags := template << 1
	if tpgdon {
		flags |= 8
	}
	b = append(b, flags)
	b = append(b, atBytes(at)...)
	e := newTestEncoder()
	e.encodeGeneric(img, template, at, tpgdon)
	return append(b, e.bytes()...)
}
