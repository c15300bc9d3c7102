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

import "errors"

// FormatError 输入数据格式错误
type FormatError string

func (e FormatError) Error() string { return "jbig2: invalid format: " + string(e) }

// UnsupportedError 已声明但未实现的特性
type UnsupportedError string

func (e UnsupportedError) Error() string { return "jbig2: unsupported feature: " + string(e) }

var (
	// ErrBadMagic 文件头标识不正确
	ErrBadMagic = FormatError("bad file header magic")
	// ErrUnknownLength 未知长度段无法确定结束位置
	ErrUnknownLength = FormatError("segment end was not found")
	// ErrForwardReference 引用了尚未出现的段
	ErrForwardReference = FormatError("reference to an undecoded segment")
	// ErrHuffmanData 霍夫曼码字不在表中
	ErrHuffmanData = FormatError("invalid Huffman data")
	// ErrNoPage 没有页面信息段
	ErrNoPage = errors.New("jbig2: no page information")
)
