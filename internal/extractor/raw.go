package extractor

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// extractRaw pulls text straight out of the content streams in data without
// walking the object graph. It covers PDFs whose xref the library rejects
// and fonts that only decode through a ToUnicode CMap. Every content stream
// that shows text becomes one page.
func extractRaw(data []byte) []string {
	streams := rawStreams(data)
	cm := collectToUnicode(streams)

	var pages []string
	for _, s := range streams {
		if !bytes.Contains(s, []byte("BT")) {
			continue
		}
		if text := contentText(s, cm); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

// rawFallback reads the whole document and returns its raw-stream text, or
// nil when that text is not readable either.
func rawFallback(r io.ReaderAt, size int64) []string {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil
	}
	if pages := extractRaw(data); isReadableText(pages) {
		return pages
	}
	return nil
}

var (
	streamKeyword    = []byte("stream")
	endstreamKeyword = []byte("endstream")
)

// rawStreams returns the body of every stream in data, inflated when it is
// Flate encoded.
func rawStreams(data []byte) [][]byte {
	var streams [][]byte
	for {
		i := bytes.Index(data, streamKeyword)
		if i < 0 {
			break
		}
		body := data[i+len(streamKeyword):]
		body = bytes.TrimPrefix(body, []byte("\r"))
		body = bytes.TrimPrefix(body, []byte("\n"))

		j := bytes.Index(body, endstreamKeyword)
		if j < 0 {
			break
		}
		if s := bytes.TrimRight(body[:j], "\r\n"); len(s) > 0 {
			streams = append(streams, inflate(s))
		}
		data = body[j+len(endstreamKeyword):]
	}
	return streams
}

func inflate(s []byte) []byte {
	zr, err := zlib.NewReader(bytes.NewReader(s))
	if err != nil {
		return s
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil && len(out) == 0 {
		return s
	}
	return out
}

// operand is a content-stream operand. Only strings, numbers and arrays of
// them matter for text; names and dictionaries are kept as placeholders.
type operand struct {
	str   []byte
	isStr bool
	isHex bool
	num   float64
	arr   []operand
}

// textState collects decoded text into lines while a content stream is
// walked. A new line starts when the text position moves vertically.
type textState struct {
	cm    toUnicode
	lines []string
	line  strings.Builder
	y     float64
	hasY  bool
}

// tjSpace is the TJ displacement, in thousandths of an em, wide enough to
// read as a word gap.
const tjSpace = -250

func contentText(s []byte, cm toUnicode) string {
	ts := &textState{cm: cm}
	var (
		operands []operand
		array    []operand
		inArray  bool
	)
	push := func(o operand) {
		if inArray {
			array = append(array, o)
		} else {
			operands = append(operands, o)
		}
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(s) && s[i] != '\n' && s[i] != '\r' {
				i++
			}
		case c == '(':
			str, n := readLiteral(s[i:])
			push(operand{str: str, isStr: true})
			i += n
		case c == '<' && i+1 < len(s) && s[i+1] == '<':
			i += skipDict(s[i:])
			push(operand{})
		case c == '<':
			end := bytes.IndexByte(s[i:], '>')
			if end < 0 {
				i = len(s)
				continue
			}
			push(operand{str: decodeHex(s[i+1 : i+end]), isStr: true, isHex: true})
			i += end + 1
		case c == '[':
			inArray, array = true, nil
			i++
		case c == ']':
			inArray = false
			operands = append(operands, operand{arr: array})
			array = nil
			i++
		case c == '/':
			j := i + 1
			for j < len(s) && !isPDFSpace(s[j]) && !isPDFDelimiter(s[j]) {
				j++
			}
			push(operand{})
			i = j
		case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(s) && (s[j] == '.' || (s[j] >= '0' && s[j] <= '9')) {
				j++
			}
			f, _ := strconv.ParseFloat(string(s[i:j]), 64)
			push(operand{num: f})
			i = j
		default:
			j := i
			for j < len(s) && !isPDFSpace(s[j]) && !isPDFDelimiter(s[j]) {
				j++
			}
			if j == i {
				i++
				continue
			}
			op := string(s[i:j])
			if op == "ID" {
				// inline image data runs to EI
				if k := bytes.Index(s[j:], []byte("EI")); k >= 0 {
					j += k + 2
				} else {
					j = len(s)
				}
			}
			ts.apply(op, operands)
			operands = operands[:0]
			i = j
		}
	}
	ts.breakLine()
	return strings.Join(ts.lines, "\n")
}

func (ts *textState) apply(op string, args []operand) {
	switch op {
	case "Tj":
		ts.show(lastOperand(args))
	case "'", `"`:
		ts.breakLine()
		ts.show(lastOperand(args))
	case "TJ":
		for _, o := range lastOperand(args).arr {
			if o.isStr {
				ts.show(o)
			} else if o.num < tjSpace {
				ts.line.WriteByte(' ')
			}
		}
	case "T*":
		ts.breakLine()
	case "Td", "TD":
		if len(args) >= 2 && args[len(args)-1].num != 0 {
			ts.breakLine()
		} else {
			ts.space()
		}
	case "Tm":
		if len(args) < 6 {
			return
		}
		y := args[len(args)-1].num
		if ts.hasY && y != ts.y {
			ts.breakLine()
		} else {
			ts.space()
		}
		ts.y, ts.hasY = y, true
	}
}

func (ts *textState) show(o operand) {
	if o.isStr {
		ts.line.WriteString(decodeText(o.str, o.isHex, ts.cm))
	}
}

func (ts *textState) space() {
	if ts.line.Len() > 0 {
		ts.line.WriteByte(' ')
	}
}

func (ts *textState) breakLine() {
	if line := strings.Join(strings.Fields(ts.line.String()), " "); line != "" {
		ts.lines = append(ts.lines, line)
	}
	ts.line.Reset()
}

func lastOperand(args []operand) operand {
	if len(args) == 0 {
		return operand{}
	}
	return args[len(args)-1]
}

// decodeText turns the bytes of a shown string into text: through the
// ToUnicode map when there is one, as UTF-16BE for plausible hex strings,
// and as Latin-1 otherwise.
func decodeText(raw []byte, isHex bool, cm toUnicode) string {
	if !cm.empty() {
		if s := cm.decode(raw); s != "" {
			return s
		}
	}
	if isHex {
		if s, ok := utf16Text(raw); ok {
			return s
		}
	}
	return latin1Text(raw)
}

// utf16Text accepts only code units from Latin-1 or the currency block,
// so single-byte hex strings are not misread as CJK.
func utf16Text(raw []byte) (string, bool) {
	if len(raw) == 0 || len(raw)%2 != 0 {
		return "", false
	}
	var sb strings.Builder
	for i := 0; i < len(raw); i += 2 {
		r := rune(raw[i])<<8 | rune(raw[i+1])
		if r > 0xFF && (r < 0x20A0 || r > 0x20CF) {
			return "", false
		}
		if unicode.IsPrint(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String(), true
}

func latin1Text(raw []byte) string {
	var sb strings.Builder
	for _, b := range raw {
		switch {
		case b == '\t' || b == '\n' || b == '\r':
			sb.WriteByte(' ')
		case b >= 0x20 && b < 0x7F:
			sb.WriteByte(b)
		case b >= 0xA0:
			sb.WriteRune(rune(b))
		}
	}
	return sb.String()
}

// readLiteral reads a parenthesised string starting at s[0] and returns its
// unescaped bytes and how many input bytes it spanned.
func readLiteral(s []byte) ([]byte, int) {
	var out []byte
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '(':
			depth++
			if depth == 1 {
				continue
			}
		case ')':
			depth--
			if depth == 0 {
				return out, i + 1
			}
		case '\\':
			if i+1 >= len(s) {
				return out, len(s)
			}
			i++
			switch e := s[i]; e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if i+1 < len(s) && s[i+1] == '\n' {
					i++
				}
			case '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; k++ {
						i++
						v = v*8 + int(s[i]-'0')
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
			continue
		}
		out = append(out, c)
	}
	return out, len(s)
}

// skipDict returns the length of the << >> dictionary at the start of s.
func skipDict(s []byte) int {
	depth := 0
	for i := 0; i+1 < len(s); i++ {
		switch {
		case s[i] == '<' && s[i+1] == '<':
			depth++
			i++
		case s[i] == '>' && s[i+1] == '>':
			depth--
			i++
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(s)
}

// decodeHex decodes a hex string body, ignoring whitespace and padding an
// odd final digit with 0.
func decodeHex(h []byte) []byte {
	clean := make([]byte, 0, len(h)+1)
	for _, c := range h {
		if !isPDFSpace(c) {
			clean = append(clean, c)
		}
	}
	if len(clean)%2 != 0 {
		clean = append(clean, '0')
	}
	out, err := hex.DecodeString(string(clean))
	if err != nil {
		return nil
	}
	return out
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isPDFDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}
