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
	"image"
	"log/slog"
)

// Page 解码完成的页面, 每像素一字节, 0为黑, 255为白; Number 为页面关联号
type Page struct {
	Width  int
	Height int
	Pix    []byte
	Number uint32
}

// Image 返回与Pix共享内存的灰度图像
func (p *Page) Image() *image.Gray {
	return &image.Gray{
		Pix:    p.Pix,
		Stride: p.Width,
		Rect:   image.Rect(0, 0, p.Width, p.Height),
	}
}

// pageState 正在合成的页面
type pageState struct {
	info          *pageInformationSegment
	number        uint32
	bitmap        *Image
	unknownHeight bool
	maxPixels     int
	logger        *slog.Logger
}

// newPageState 按页面信息段创建页面缓冲
// 高度未知时从0行开始, 随区域与条带结束段增长
func newPageState(info *pageInformationSegment, number uint32, maxPixels int, logger *slog.Logger) (*pageState, error) {
	height := info.Height
	unknown := height == unknownLength
	if unknown {
		height = 0
	}
	bitmap, err := newCheckedImage(info.Width, height, maxPixels)
	if err != nil {
		return nil, err
	}
	bitmap.Fill(info.DefaultPixel)
	return &pageState{
		info:          info,
		number:        number,
		bitmap:        bitmap,
		unknownHeight: unknown,
		maxPixels:     maxPixels,
		logger:        logger,
	}, nil
}

// grow 高度未知的页面扩展到至少height行
func (p *pageState) grow(height int64) error {
	if !p.unknownHeight || height <= int64(p.bitmap.Height()) {
		return nil
	}
	if height*int64(p.bitmap.Width()) > int64(p.maxPixels) {
		return FormatError(fmt.Sprintf("page of %d rows exceeds pixel limit", height))
	}
	p.bitmap.Expand(int(height), p.info.DefaultPixel)
	return nil
}

// operator 页面允许覆盖时使用区域的组合操作, 否则使用页面的
func (p *pageState) operator(info RegionInfo) (ComposeOp, error) {
	op := p.info.CombOp
	if p.info.Override {
		op = info.CombOp
	}
	if op != ComposeOr && op != ComposeXor {
		return op, UnsupportedError(fmt.Sprintf("page operator %v", op))
	}
	return op, nil
}

// drawBitmap 将区域位图合成到页面, 超出页面的部分裁剪并记录一次警告
// 入参: segment 段号, info 区域信息, bitmap 区域位图
// 返回: error 错误信息
func (p *pageState) drawBitmap(segment uint32, info RegionInfo, bitmap *Image) error {
	op, err := p.operator(info)
	if err != nil {
		return err
	}
	if err := p.grow(int64(info.Y) + int64(bitmap.Height())); err != nil {
		return err
	}
	if p.bitmap.ComposeFrom(int(info.X), int(info.Y), bitmap, op) {
		p.logger.Warn("jbig2: region exceeds page bounds, clipped",
			slog.Uint64("segment", uint64(segment)),
			slog.Int("x", int(info.X)),
			slog.Int("y", int(info.Y)),
			slog.Int("width", bitmap.Width()),
			slog.Int("height", bitmap.Height()))
	}
	return nil
}

// area 复制区域下方的页面内容, 作为细化的参考位图
func (p *pageState) area(info RegionInfo) (*Image, error) {
	if err := p.grow(int64(info.Y) + int64(info.Height)); err != nil {
		return nil, err
	}
	return p.bitmap.SubImage(int(info.X), int(info.Y), int(info.Width), int(info.Height)), nil
}

// replaceArea 以细化结果替换页面区域
func (p *pageState) replaceArea(info RegionInfo, bitmap *Image) {
	p.bitmap.ComposeFrom(int(info.X), int(info.Y), bitmap, ComposeReplace)
}

// finish 展开为每像素一字节的页面
func (p *pageState) finish() *Page {
	w, h := p.bitmap.Width(), p.bitmap.Height()
	page := &Page{Width: w, Height: h, Pix: make([]byte, w*h), Number: p.number}
	for y := 0; y < h; y++ {
		row := p.bitmap.Row(y)
		out := page.Pix[y*w : (y+1)*w]
		for x := range out {
			if row[x>>3]&(0x80>>uint(x&7)) == 0 {
				out[x] = 0xFF
			}
		}
	}
	return page
}
