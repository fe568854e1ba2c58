// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package bpu

import "github.com/pkg/errors"

var errCOBSOverflow = errors.New("cobs: encoded output would overflow destination")

// cobsMaxEncodedLen returns the worst-case number of bytes required to COBS
// encode decodedLen bytes of input, not including the trailing 0x00
// delimiter.
func cobsMaxEncodedLen(decodedLen int) int {
	return decodedLen + decodedLen/254 + 1
}

// cobsEncode writes the COBS encoding of src into dst and returns the number
// of bytes written. It does not append the trailing delimiter; callers that
// need a terminated frame append 0x00 themselves. It returns
// errCOBSOverflow if dst is too small.
func cobsEncode(dst, src []byte) (int, error) {
	if len(dst) < cobsMaxEncodedLen(len(src)) {
		return 0, errCOBSOverflow
	}

	read, write, codeIdx := 0, 1, 0
	code := byte(1)
	dst[0] = 0 // placeholder, patched below

	for read < len(src) {
		if src[read] == 0 {
			dst[codeIdx] = code
			code = 1
			codeIdx = write
			write++
			read++
			continue
		}
		dst[write] = src[read]
		write++
		read++
		code++
		if code == 0xFF {
			dst[codeIdx] = code
			code = 1
			codeIdx = write
			write++
		}
	}
	dst[codeIdx] = code
	return write, nil
}

var errCOBSMalformed = errors.New("cobs: malformed encoded stream")

// cobsDecode reverses cobsEncode: src must NOT include the trailing 0x00
// delimiter. It writes the decoded bytes into dst and returns the count.
func cobsDecode(dst, src []byte) (int, error) {
	read, write := 0, 0
	for read < len(src) {
		code := int(src[read])
		if code == 0 {
			return 0, errCOBSMalformed
		}
		read++
		for i := 1; i < code; i++ {
			if read >= len(src) {
				return 0, errCOBSMalformed
			}
			if write >= len(dst) {
				return 0, errCOBSOverflow
			}
			dst[write] = src[read]
			write++
			read++
		}
		if code != 0xFF && read < len(src) {
			if write >= len(dst) {
				return 0, errCOBSOverflow
			}
			dst[write] = 0
			write++
		}
	}
	return write, nil
}
