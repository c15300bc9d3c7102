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

import "fmt"

// Image 1位深度位图, 每行按字节对齐, 高位在前, 1为黑
type Image struct {
	width  int
	height int
	stride int
	data   []byte
}

// NewImage 创建新图像
// 入参: width 宽度, height 高度
// 返回: *Image 图像对象
func NewImage(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	stride := (width + 7) >> 3
	return &Image{
		width:  width,
		height: height,
		stride: stride,
		data:   make([]byte, stride*height),
	}
}

// newCheckedImage 按像素上限创建图像
func newCheckedImage(width, height uint32, maxPixels int) (*Image, error) {
	if uint64(width)*uint64(height) > uint64(maxPixels) {
		return nil, FormatError(fmt.Sprintf("bitmap %dx%d exceeds pixel limit", width, height))
	}
	return NewImage(int(width), int(height)), nil
}

// Width 获取宽度
func (i *Image) Width() int { return i.width }

// Height 获取高度
func (i *Image) Height() int { return i.height }

// Stride 获取跨度
func (i *Image) Stride() int { return i.stride }

// Data 获取数据
func (i *Image) Data() []byte { return i.data }

// Row 获取第y行的字节
func (i *Image) Row(y int) []byte {
	return i.data[y*i.stride : (y+1)*i.stride]
}

// GetPixel 获取像素值, 越界返回0
// 入参: x 轴坐标, y 轴坐标
// 返回: int 像素值
func (i *Image) GetPixel(x, y int) int {
	if x < 0 || x >= i.width || y < 0 || y >= i.height {
		return 0
	}
	return int(i.data[y*i.stride+x>>3]>>(7-uint(x&7))) & 1
}

// SetPixel 设置像素值, 越界忽略
// 入参: x 轴坐标, y 轴坐标, v 像素值
func (i *Image) SetPixel(x, y int, v int) {
	if x < 0 || x >= i.width || y < 0 || y >= i.height {
		return
	}
	mask := byte(0x80) >> uint(x&7)
	if v != 0 {
		i.data[y*i.stride+x>>3] |= mask
	} else {
		i.data[y*i.stride+x>>3] &^= mask
	}
}

// Fill 填充图像
// 入参: v 填充值
func (i *Image) Fill(v bool) {
	var val byte
	if v {
		val = 0xFF
	}
	for idx := range i.data {
		i.data[idx] = val
	}
}

// ComposeFrom 将源图像按操作组合到当前图像的(x,y)处, 超出部分裁剪
// 入参: x 轴坐标, y 轴坐标, src 源图像, op 组合操作
// 返回: clipped 是否发生裁剪
func (i *Image) ComposeFrom(x, y int, src *Image, op ComposeOp) (clipped bool) {
	for sy := 0; sy < src.height; sy++ {
		dy := y + sy
		if dy < 0 || dy >= i.height {
			clipped = true
			continue
		}
		for sx := 0; sx < src.width; sx++ {
			dx := x + sx
			if dx < 0 || dx >= i.width {
				clipped = true
				continue
			}
			s := src.GetPixel(sx, sy)
			d := i.GetPixel(dx, dy)
			var r int
			switch op {
			case ComposeOr:
				r = d | s
			case ComposeAnd:
				r = d & s
			case ComposeXor:
				r = d ^ s
			case ComposeXnor:
				r = 1 ^ d ^ s
			case ComposeReplace:
				r = s
			default:
				r = d
			}
			i.SetPixel(dx, dy, r)
		}
	}
	return clipped
}

// SubImage 复制子图像, 源图像外的像素为0
// 入参: x 轴坐标, y 轴坐标, w 宽度, h 高度
// 返回: *Image 子图像对象
func (i *Image) SubImage(x, y, w, h int) *Image {
	sub := NewImage(w, h)
	if x&7 == 0 && x >= 0 && y >= 0 && x+w <= i.width && y+h <= i.height {
		for r := 0; r < h; r++ {
			src := i.data[(y+r)*i.stride+x>>3:]
			copy(sub.Row(r), src[:sub.stride])
			if tail := w & 7; tail != 0 {
				sub.data[r*sub.stride+sub.stride-1] &= 0xFF << uint(8-tail)
			}
		}
		return sub
	}
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			if i.GetPixel(x+c, y+r) != 0 {
				sub.SetPixel(c, r, 1)
			}
		}
	}
	return sub
}

// Expand 扩展图像高度
// 入参: height 新高度, defaultPixel 默认填充值
func (i *Image) Expand(height int, defaultPixel bool) {
	if height <= i.height {
		return
	}
	newData := make([]byte, i.stride*height)
	copy(newData, i.data)
	if defaultPixel {
		for j := i.stride * i.height; j < len(newData); j++ {
			newData[j] = 0xFF
		}
	}
	i.data = newData
	i.height = height
}

// Duplicate 复制图像
func (i *Image) Duplicate() *Image {
	d := NewImage(i.width, i.height)
	copy(d.data, i.data)
	return d
}

// CopyLine 复制行
// 入参: h 目标行号, srcH 源行号
func (i *Image) CopyLine(h, srcH int) {
	if h < 0 || h >= i.height || srcH < 0 || srcH >= i.height {
		return
	}
	copy(i.Row(h), i.Row(srcH))
}

// Equal 判断两幅图像尺寸与像素是否一致
func (i *Image) Equal(o *Image) bool {
	if i.width != o.width || i.height != o.height {
		return false
	}
	for y := 0; y < i.height; y++ {
		for x := 0; x < i.width; x++ {
			if i.GetPixel(x, y) != o.GetPixel(x, y) {
				return false
			}
		}
	}
	return true
}
