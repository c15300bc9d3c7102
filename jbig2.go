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

// Package jbig2dec 按段驱动的 JBIG2 双色图像解码器
//
// 支持独立文件与 PDF 内嵌两种组织方式, 以及通用区域, 细化区域,
// 符号字典与文本区域, 模式字典与半色调区域. MMR 编码交由
// golang.org/x/image/ccitt 解码.
package jbig2dec

import (
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
)

func init() {
	image.RegisterFormat("jbig2", string(fileMagic), Decode, DecodeConfig)
}

// config 解码选项
type config struct {
	globals   []byte
	embedded  bool
	logger    *slog.Logger
	maxPixels int
}

// Option 解码选项
type Option func(*config)

// WithGlobals 设置先于页面数据处理的全局段数据(PDF JBIG2Globals)
func WithGlobals(globals []byte) Option {
	return func(c *config) { c.globals = globals }
}

// WithEmbedded 数据没有文件头, 段按顺序排列(PDF 内嵌组织方式)
func WithEmbedded() Option {
	return func(c *config) { c.embedded = true }
}

// WithLogger 设置日志
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMaxPixels 设置单个页面或区域的像素上限
func WithMaxPixels(n int) Option {
	return func(c *config) { c.maxPixels = n }
}

func newConfig(opts []Option) *config {
	c := &config{logger: slog.Default(), maxPixels: defaultMaxPixels}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.maxPixels <= 0 {
		c.maxPixels = defaultMaxPixels
	}
	return c
}

// readAllSegments 解析全局段与数据中的全部段头
func readAllSegments(data []byte, c *config) ([]*Segment, FileHeader, error) {
	var fh FileHeader
	var segments []*Segment
	if len(c.globals) > 0 {
		globals, err := ReadSegments(c.globals, 0, len(c.globals), false)
		if err != nil {
			return nil, fh, err
		}
		segments = append(segments, globals...)
	}
	start := 0
	if !c.embedded {
		var err error
		if fh, start, err = ParseFileHeader(data); err != nil {
			return nil, fh, err
		}
	}
	segs, err := ReadSegments(data, start, len(data), fh.RandomAccess)
	if err != nil {
		return nil, fh, err
	}
	return append(segments, segs...), fh, nil
}

// Decoder JBIG2解码器, 按页面顺序逐页输出
type Decoder struct {
	doc      *Document
	header   FileHeader
	segments []*Segment
	next     int
	err      error
}

// NewDecoder 创建解码器
// 入参: r 读取器, opts 解码选项
// 返回: *Decoder 解码器, error 错误信息
func NewDecoder(r io.Reader, opts ...Option) (*Decoder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return newDecoder(data, newConfig(opts))
}

func newDecoder(data []byte, c *config) (*Decoder, error) {
	segments, fh, err := readAllSegments(data, c)
	if err != nil {
		return nil, err
	}
	return &Decoder{
		doc:      NewDocument(c.logger, c.maxPixels),
		header:   fh,
		segments: segments,
	}, nil
}

// Header 返回文件头, 内嵌数据为零值
func (d *Decoder) Header() FileHeader {
	return d.header
}

// DecodePage 解码下一页
// 返回: *Page 页面, 没有更多页面时返回 io.EOF
func (d *Decoder) DecodePage() (*Page, error) {
	if d.err != nil {
		return nil, d.err
	}
	for {
		if p := d.doc.takePage(); p != nil {
			return p, nil
		}
		if d.next >= len(d.segments) || d.doc.done {
			if d.doc.page == nil {
				return nil, io.EOF
			}
			d.doc.completePage()
			continue
		}
		seg := d.segments[d.next]
		d.next++
		if err := d.doc.ProcessSegment(seg); err != nil {
			d.err = err
			return nil, err
		}
	}
}

// Decode 解码下一页
// 返回: image.Image 图像, 没有更多页面时返回 io.EOF
func (d *Decoder) Decode() (image.Image, error) {
	p, err := d.DecodePage()
	if err != nil {
		return nil, err
	}
	return p.Image(), nil
}

// DecodeAll 解码所有剩余页面
// 返回: []image.Image 图像列表, error 错误信息
func (d *Decoder) DecodeAll() ([]image.Image, error) {
	var images []image.Image
	for {
		img, err := d.Decode()
		if errors.Is(err, io.EOF) {
			return images, nil
		}
		if err != nil {
			return images, err
		}
		images = append(images, img)
	}
}

// Comments 返回已处理段中的注释
func (d *Decoder) Comments() []Comment {
	return d.doc.comments
}

// Decode 解码JBIG2数据包含的第一页
// 入参: r 读取器
// 返回: image.Image 图像, error 错误信息
func Decode(r io.Reader) (image.Image, error) {
	dec, err := NewDecoder(r)
	if err != nil {
		return nil, err
	}
	img, err := dec.Decode()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoPage
	}
	return img, err
}

// DecodeConfig 获取第一页的尺寸, 高度未知时解码该页
// 入参: r 读取器
// 返回: image.Config 图像配置, error 错误信息
func DecodeConfig(r io.Reader) (image.Config, error) {
	dec, err := NewDecoder(r)
	if err != nil {
		return image.Config{}, err
	}
	for _, seg := range dec.segments {
		if seg.Header.Type != SegPageInformation {
			continue
		}
		sd, _, err := parseSegmentData(seg)
		if err != nil {
			return image.Config{}, err
		}
		pi := sd.(*pageInformationSegment)
		if pi.Height != unknownLength {
			return image.Config{ColorModel: color.GrayModel, Width: int(pi.Width), Height: int(pi.Height)}, nil
		}
		p, err := dec.DecodePage()
		if err != nil {
			return image.Config{}, err
		}
		return image.Config{ColorModel: color.GrayModel, Width: p.Width, Height: p.Height}, nil
	}
	return image.Config{}, ErrNoPage
}

// ParseChunks 依次处理PDF中的全局段与页面段, 返回最后完成的页面
// 入参: chunks 内嵌组织方式的段数据块, opts 解码选项
// 返回: *Page 页面, error 错误信息
func ParseChunks(chunks [][]byte, opts ...Option) (*Page, error) {
	c := newConfig(opts)
	doc := NewDocument(c.logger, c.maxPixels)
	if len(c.globals) > 0 {
		chunks = append([][]byte{c.globals}, chunks...)
	}
	for _, chunk := range chunks {
		segments, err := ReadSegments(chunk, 0, len(chunk), false)
		if err != nil {
			return nil, err
		}
		for _, seg := range segments {
			if doc.done {
				break
			}
			if err := doc.ProcessSegment(seg); err != nil {
				return nil, err
			}
		}
	}
	if doc.page != nil {
		doc.completePage()
	}
	if len(doc.pages) == 0 {
		return nil, ErrNoPage
	}
	return doc.pages[len(doc.pages)-1], nil
}
