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
	"fmt"
	"log/slog"
)

// intermediateRegion 中间区域段的结果, 供细化区域引用
type intermediateRegion struct {
	info   RegionInfo
	bitmap *Image
}

// Document 段序列的解码状态
// 各注册表以段号为键, 段严格按出现顺序处理
type Document struct {
	logger    *slog.Logger
	maxPixels int
	seen      map[uint32]SegmentType
	symbols   registry[*SymbolDict]
	patterns  registry[*PatternDict]
	tables    registry[*HuffmanTable]
	regions   registry[intermediateRegion]
	page      *pageState
	pages     []*Page
	comments  []Comment
	done      bool
}

// NewDocument 创建文档
// 入参: logger 日志, maxPixels 单个位图的像素上限
// 返回: *Document 文档对象
func NewDocument(logger *slog.Logger, maxPixels int) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	if maxPixels <= 0 {
		maxPixels = defaultMaxPixels
	}
	return &Document{
		logger:    logger,
		maxPixels: maxPixels,
		seen:      make(map[uint32]SegmentType),
	}
}

// ProcessSegment 处理一个段, 错误附带段号与类型
// 入参: seg 段
// 返回: error 错误信息
func (d *Document) ProcessSegment(seg *Segment) error {
	h := seg.Header
	if err := d.processSegment(seg); err != nil {
		return fmt.Errorf("segment %d (%s): %w", h.Number, h.Type, err)
	}
	d.seen[h.Number] = h.Type
	return nil
}

func (d *Document) processSegment(seg *Segment) error {
	h := seg.Header
	for _, n := range h.ReferredTo {
		if _, ok := d.seen[n]; !ok {
			return fmt.Errorf("%w: segment %d", ErrForwardReference, n)
		}
	}
	sd, bs, err := parseSegmentData(seg)
	if err != nil {
		return err
	}
	d.logger.Debug("jbig2: segment",
		slog.Uint64("number", uint64(h.Number)),
		slog.String("type", h.Type.String()),
		slog.String("kind", sd.segmentKind()),
		slog.Uint64("length", uint64(h.Length)),
		slog.Uint64("page", uint64(h.PageAssociation)))
	switch v := sd.(type) {
	case *symbolDictionarySegment:
		return d.symbolDictionary(seg, v, bs)
	case *textRegionSegment:
		return d.textRegion(seg, v, bs)
	case *patternDictionarySegment:
		return d.patternDictionary(seg, v, bs)
	case *halftoneRegionSegment:
		return d.halftoneRegion(seg, v, bs)
	case *genericRegionSegment:
		return d.genericRegion(seg, v, bs)
	case *refinementRegionSegment:
		return d.refinementRegion(seg, v, bs)
	case *pageInformationSegment:
		return d.pageInformation(seg, v)
	case endOfPageSegment:
		if d.page == nil {
			d.logger.Warn("jbig2: end of page without an open page", slog.Uint64("segment", uint64(h.Number)))
			return nil
		}
		d.completePage()
	case endOfStripeSegment:
		if d.page == nil {
			return FormatError("end of stripe outside a page")
		}
		return d.page.grow(int64(v.EndRow) + 1)
	case endOfFileSegment:
		d.done = true
	case profilesSegment:
		d.logger.Warn("jbig2: profiles segment skipped", slog.Uint64("segment", uint64(h.Number)))
	case tablesSegment:
		d.tables.put(h.Number, v.Table)
	case extensionSegment:
		comments, known, err := decodeComments(v.ExtensionType, bs, h.PageAssociation)
		if err != nil {
			return err
		}
		if !known {
			d.logger.Warn("jbig2: extension segment skipped",
				slog.Uint64("segment", uint64(h.Number)),
				slog.String("extension", fmt.Sprintf("0x%08x", v.ExtensionType)))
		}
		d.comments = append(d.comments, comments...)
	}
	return nil
}

// completePage 结束当前页面
func (d *Document) completePage() {
	d.pages = append(d.pages, d.page.finish())
	d.page = nil
}

// takePage 取出最早完成的页面
func (d *Document) takePage() *Page {
	if len(d.pages) == 0 {
		return nil
	}
	p := d.pages[0]
	d.pages = d.pages[1:]
	return p
}

// checkRegion 检查区域尺寸
func (d *Document) checkRegion(info RegionInfo) error {
	if uint64(info.Width)*uint64(info.Height) > uint64(d.maxPixels) {
		return FormatError(fmt.Sprintf("region %dx%d exceeds pixel limit", info.Width, info.Height))
	}
	return nil
}

// isIntermediate 中间区域段只保存结果不绘制
func isIntermediate(t SegmentType) bool {
	switch t {
	case SegIntermediateTextRegion, SegIntermediateHalftoneRegion,
		SegIntermediateGenericRegion, SegIntermediateRefinementRegion:
		return true
	}
	return false
}

// placeRegion 保存中间区域或绘制到页面
func (d *Document) placeRegion(seg *Segment, info RegionInfo, bitmap *Image) error {
	h := seg.Header
	if isIntermediate(h.Type) {
		d.regions.put(h.Number, intermediateRegion{info: info, bitmap: bitmap})
		return nil
	}
	if d.page == nil {
		return FormatError("region segment outside a page")
	}
	return d.page.drawBitmap(h.Number, info, bitmap)
}

// referredSymbols 按引用顺序拼接符号字典的导出符号
func (d *Document) referredSymbols(refs []uint32) []*Image {
	dicts := d.symbols.collect(refs)
	n := 0
	for _, dict := range dicts {
		n += dict.NumImages()
	}
	symbols := make([]*Image, 0, n)
	for _, dict := range dicts {
		symbols = append(symbols, dict.Images...)
	}
	return symbols
}

// newContext 段数据中字段之后的解码上下文
func newContext(seg *Segment, bs *BitStream) *DecodingContext {
	return NewDecodingContext(seg.data, bs.Offset(), seg.end)
}

func (d *Document) symbolDictionary(seg *Segment, sd *symbolDictionarySegment, bs *BitStream) error {
	refs := seg.Header.ReferredTo
	dicts := d.symbols.collect(refs)
	dc := newContext(seg, bs)
	if sd.ContextUsed {
		if len(dicts) == 0 || !dicts[len(dicts)-1].hasRetainedContexts() {
			return FormatError("symbol dictionary reuses contexts that were not retained")
		}
		dicts[len(dicts)-1].restoreContexts(dc)
	}
	proc := &SDDProc{
		Huffman:     sd.Huffman,
		Refinement:  sd.Refinement,
		Inputs:      d.referredSymbols(refs),
		NumNew:      sd.NumNew,
		NumExported: sd.NumExported,
		Template:    sd.Template,
		AT:          sd.AT,
		RefTemplate: sd.RefTemplate,
		RefAT:       sd.RefAT,
		MaxPixels:   d.maxPixels,
		Logger:      d.logger,
	}
	if sd.Huffman {
		var err error
		if proc.Tables, err = selectSymbolDictTables(sd, d.tables.collect(refs)); err != nil {
			return err
		}
	}
	exported, err := proc.Decode(dc)
	if err != nil {
		return err
	}
	dict := &SymbolDict{Images: exported}
	if sd.ContextRetained {
		dict.retainContexts(dc)
	}
	d.symbols.put(seg.Header.Number, dict)
	return nil
}

func (d *Document) textRegion(seg *Segment, tr *textRegionSegment, bs *BitStream) error {
	if err := d.checkRegion(tr.Info); err != nil {
		return err
	}
	refs := seg.Header.ReferredTo
	symbols := d.referredSymbols(refs)
	dc := newContext(seg, bs)
	proc := &TRDProc{
		Huffman:          tr.Huffman,
		Refinement:       tr.Refinement,
		Width:            int(tr.Info.Width),
		Height:           int(tr.Info.Height),
		DefaultPixel:     tr.DefaultPixel,
		NumInstances:     tr.NumInstances,
		LogStripSize:     tr.LogStripSize,
		Symbols:          symbols,
		SymbolCodeLength: log2Ceil(len(symbols)),
		Transposed:       tr.Transposed,
		DSOffset:         tr.DSOffset,
		Corner:           tr.Corner,
		CombOp:           tr.CombOp,
		RefTemplate:      tr.RefTemplate,
		RefAT:            tr.RefAT,
		MaxPixels:        d.maxPixels,
	}
	if tr.Huffman && !tr.Refinement {
		var err error
		proc.Tables, err = selectTextRegionTables(tr, d.tables.collect(refs), dc.Stream(), len(symbols), d.logger)
		if err != nil {
			return err
		}
	}
	bitmap, err := proc.Decode(dc)
	if err != nil {
		return err
	}
	return d.placeRegion(seg, tr.Info, bitmap)
}

func (d *Document) patternDictionary(seg *Segment, pd *patternDictionarySegment, bs *BitStream) error {
	proc := &PDDProc{
		MMR:           pd.MMR,
		Template:      pd.Template,
		PatternWidth:  int(pd.PatternWidth),
		PatternHeight: int(pd.PatternHeight),
		MaxIndex:      pd.MaxIndex,
		MaxPixels:     d.maxPixels,
	}
	dict, err := proc.Decode(newContext(seg, bs))
	if err != nil {
		return err
	}
	d.patterns.put(seg.Header.Number, dict)
	return nil
}

func (d *Document) halftoneRegion(seg *Segment, hr *halftoneRegionSegment, bs *BitStream) error {
	if err := d.checkRegion(hr.Info); err != nil {
		return err
	}
	patterns, err := mergePatternDicts(d.patterns.collect(seg.Header.ReferredTo))
	if err != nil {
		return err
	}
	proc := &HTRDProc{
		Width:        int(hr.Info.Width),
		Height:       int(hr.Info.Height),
		MMR:          hr.MMR,
		Template:     hr.Template,
		EnableSkip:   hr.EnableSkip,
		CombOp:       hr.CombOp,
		DefaultPixel: hr.DefaultPixel,
		GridWidth:    hr.GridWidth,
		GridHeight:   hr.GridHeight,
		GridX:        hr.GridX,
		GridY:        hr.GridY,
		VectorX:      hr.VectorX,
		VectorY:      hr.VectorY,
		Patterns:     patterns,
		MaxPixels:    d.maxPixels,
	}
	bitmap, err := proc.Decode(newContext(seg, bs))
	if err != nil {
		return err
	}
	return d.placeRegion(seg, hr.Info, bitmap)
}

func (d *Document) genericRegion(seg *Segment, gr *genericRegionSegment, bs *BitStream) error {
	if err := d.checkRegion(gr.Info); err != nil {
		return err
	}
	proc := &GRDProc{
		MMR:      gr.MMR,
		Width:    int(gr.Info.Width),
		Height:   int(gr.Info.Height),
		Template: gr.Template,
		TPGDON:   gr.TPGDON,
		AT:       gr.AT,
	}
	bitmap, err := proc.Decode(newContext(seg, bs))
	if err != nil {
		return err
	}
	return d.placeRegion(seg, gr.Info, bitmap)
}

// refinementRegion 细化被引用的中间区域, 未引用时细化页面上区域所在部分
func (d *Document) refinementRegion(seg *Segment, rr *refinementRegionSegment, bs *BitStream) error {
	if err := d.checkRegion(rr.Info); err != nil {
		return err
	}
	var (
		reference *Image
		onPage    bool
	)
	for _, n := range seg.Header.ReferredTo {
		if r, ok := d.regions.get(n); ok {
			reference = r.bitmap
			break
		}
	}
	if reference == nil {
		if len(seg.Header.ReferredTo) > 0 {
			return FormatError("refinement region refers to no intermediate region")
		}
		if d.page == nil {
			return FormatError("refinement region outside a page")
		}
		var err error
		if reference, err = d.page.area(rr.Info); err != nil {
			return err
		}
		onPage = true
	}
	proc := &GRRDProc{
		Width:     int(rr.Info.Width),
		Height:    int(rr.Info.Height),
		Template:  rr.Template,
		Reference: reference,
		TPGRON:    rr.TPGRON,
		AT:        rr.AT,
	}
	bitmap, err := proc.Decode(newContext(seg, bs))
	if err != nil {
		return err
	}
	if onPage && !isIntermediate(seg.Header.Type) {
		d.page.replaceArea(rr.Info, bitmap)
		return nil
	}
	return d.placeRegion(seg, rr.Info, bitmap)
}

func (d *Document) pageInformation(seg *Segment, pi *pageInformationSegment) error {
	if d.page != nil {
		d.completePage()
	}
	page, err := newPageState(pi, seg.Header.PageAssociation, d.maxPixels, d.logger)
	if err != nil {
		return err
	}
	if page.unknownHeight && !pi.Striped {
		d.logger.Warn("jbig2: page height is unknown but page is not striped",
			slog.Uint64("segment", uint64(seg.Header.Number)))
	}
	d.page = page
	return nil
}
