package extractor

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

// toUnicode maps character codes, keyed as upper-case hex, to the text a
// font's ToUnicode CMap says they stand for. Codes may be one or more bytes
// wide.
type toUnicode struct {
	codes    map[string]string
	minBytes int
	maxBytes int
}

var (
	bfCharBlock  = regexp.MustCompile(`(?s)beginbfchar(.*?)endbfchar`)
	bfRangeBlock = regexp.MustCompile(`(?s)beginbfrange(.*?)endbfrange`)
	bfRangeEntry = regexp.MustCompile(`<([0-9A-Fa-f]+)>\s*<([0-9A-Fa-f]+)>\s*(<[0-9A-Fa-f]+>|\[[^\]]*\])`)
	hexToken     = regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
)

// collectToUnicode merges the mappings of every CMap stream. Fonts are not
// told apart, which is enough for statements that embed one subset font.
func collectToUnicode(streams [][]byte) toUnicode {
	cm := toUnicode{codes: make(map[string]string)}
	for _, s := range streams {
		if bytes.Contains(s, []byte("beginbfchar")) || bytes.Contains(s, []byte("beginbfrange")) {
			cm.parse(string(s))
		}
	}
	return cm
}

func (cm *toUnicode) parse(content string) {
	for _, block := range bfCharBlock.FindAllStringSubmatch(content, -1) {
		tokens := hexToken.FindAllStringSubmatch(block[1], -1)
		for i := 0; i+1 < len(tokens); i += 2 {
			cm.set(tokens[i][1], utf16Hex(tokens[i+1][1]))
		}
	}

	for _, block := range bfRangeBlock.FindAllStringSubmatch(content, -1) {
		for _, e := range bfRangeEntry.FindAllStringSubmatch(block[1], -1) {
			lo, errLo := strconv.ParseUint(e[1], 16, 32)
			hi, errHi := strconv.ParseUint(e[2], 16, 32)
			if errLo != nil || errHi != nil || hi < lo || hi-lo > 0xFFFF {
				continue
			}
			width := len(e[1])

			// <lo> <hi> [<dst1> <dst2> ...]
			if strings.HasPrefix(e[3], "[") {
				for i, t := range hexToken.FindAllStringSubmatch(e[3], -1) {
					code := lo + uint64(i)
					if code > hi {
						break
					}
					cm.set(fmt.Sprintf("%0*X", width, code), utf16Hex(t[1]))
				}
				continue
			}

			// <lo> <hi> <dst>: consecutive codes map to consecutive values
			dstHex := strings.Trim(e[3], "<>")
			dst, err := strconv.ParseUint(dstHex, 16, 32)
			if err != nil {
				continue
			}
			for code := lo; code <= hi; code++ {
				cm.set(fmt.Sprintf("%0*X", width, code), utf16Hex(fmt.Sprintf("%0*X", len(dstHex), dst+code-lo)))
			}
		}
	}
}

func (cm *toUnicode) set(code, text string) {
	if text == "" {
		return
	}
	if len(code)%2 != 0 {
		code = "0" + code
	}
	n := len(code) / 2
	if cm.minBytes == 0 || n < cm.minBytes {
		cm.minBytes = n
	}
	if n > cm.maxBytes {
		cm.maxBytes = n
	}
	cm.codes[strings.ToUpper(code)] = text
}

func (cm toUnicode) empty() bool {
	return len(cm.codes) == 0
}

// decode maps raw string bytes through the CMap, preferring the widest code
// that matches at each position. Unmapped bytes are dropped, except printable
// ASCII when the map has single-byte codes.
func (cm toUnicode) decode(raw []byte) string {
	if cm.empty() {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < len(raw); {
		n := cm.match(raw[i:])
		if n > 0 {
			sb.WriteString(cm.codes[strings.ToUpper(hex.EncodeToString(raw[i:i+n]))])
			i += n
			continue
		}
		if cm.minBytes == 1 && raw[i] >= 0x20 && raw[i] < 0x7F {
			sb.WriteByte(raw[i])
		}
		i++
	}
	return sb.String()
}

// match returns the width of the longest code at the start of raw, or 0.
func (cm toUnicode) match(raw []byte) int {
	for n := cm.maxBytes; n >= cm.minBytes && n > 0; n-- {
		if n > len(raw) {
			continue
		}
		if _, ok := cm.codes[strings.ToUpper(hex.EncodeToString(raw[:n]))]; ok {
			return n
		}
	}
	return 0
}

// utf16Hex decodes a hex UTF-16BE value, surrogate pairs included.
func utf16Hex(h string) string {
	if len(h)%4 != 0 {
		h = strings.Repeat("0", 4-len(h)%4) + h
	}
	data, err := hex.DecodeString(h)
	if err != nil {
		return ""
	}
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		units = append(units, uint16(data[i])<<8|uint16(data[i+1]))
	}
	return string(utf16.Decode(units))
}
