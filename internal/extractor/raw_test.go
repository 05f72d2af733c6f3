package extractor

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"strings"
	"testing"
)

func rawDoc(streams ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	for i, s := range streams {
		fmt.Fprintf(&buf, "%d 0 obj\n<< >>\nstream\n%s\nendstream\nendobj\n", i+1, s)
	}
	return buf.Bytes()
}

const toUnicodeCMap = `/CIDInit /ProcSet findresource begin
begincmap
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
6 beginbfchar
<0001> <0050>
<0002> <0061>
<0003> <0069>
<0004> <0064>
<0005> <0020>
<0006> <20B9>
endbfchar
2 beginbfrange
<0010> <0019> <0030>
<0020> <0021> [<0041> <0042>]
endbfrange
endcmap`

func TestExtractReader_BrokenXref(t *testing.T) {
	data := bytes.Replace(buildPDF(statementLines), []byte("startxref"), []byte("startxre_"), 1)

	pages, err := ExtractReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := strings.Join(statementLines, "\n")
	if len(pages) != 1 || pages[0] != want {
		t.Errorf("got %q, want %q", pages, want)
	}
}

func TestExtractRaw_ToUnicode(t *testing.T) {
	content := "BT /F1 10 Tf 1 0 0 1 50 700 Tm [<00010002> 120 <00030004> -400 <0006>] TJ " +
		"0 -14 Td <001400150010> Tj 0 -14 Td <00200021> Tj ET"

	pages := extractRaw(rawDoc(toUnicodeCMap, content))
	if len(pages) != 1 {
		t.Fatalf("pages: got %d, want 1 (%q)", len(pages), pages)
	}
	if want := "Paid ₹\n450\nAB"; pages[0] != want {
		t.Errorf("got %q, want %q", pages[0], want)
	}
}

func TestExtractRaw_Compressed(t *testing.T) {
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	zw.Write([]byte("BT 1 0 0 1 50 700 Tm (Paid to Zomato) Tj 1 0 0 1 50 680 Tm (Rs 450.00) Tj ET"))
	zw.Close()

	pages := extractRaw(rawDoc(z.String()))
	if len(pages) != 1 || pages[0] != "Paid to Zomato\nRs 450.00" {
		t.Errorf("unexpected pages: %q", pages)
	}
}

func TestExtractRaw_SkipsMarkedContent(t *testing.T) {
	content := "% generated\nBT /Span <</MCID 0>> BDC 1 0 0 1 0 0 Tm (Hello) Tj EMC ET"
	pages := extractRaw(rawDoc(content))
	if len(pages) != 1 || pages[0] != "Hello" {
		t.Errorf("unexpected pages: %q", pages)
	}
}

func TestExtractRaw_NoStreams(t *testing.T) {
	if pages := extractRaw([]byte("plain text, no streams")); pages != nil {
		t.Errorf("expected nil, got %q", pages)
	}
}

func TestReadLiteral(t *testing.T) {
	s := []byte(`(a\(b\)c\101 (nested)) Tj`)
	out, n := readLiteral(s)
	if string(out) != "a(b)cA (nested)" {
		t.Errorf("text: got %q", out)
	}
	if want := len(s) - len(" Tj"); n != want {
		t.Errorf("consumed: got %d, want %d", n, want)
	}
}

func TestUTF16Hex(t *testing.T) {
	tests := map[string]string{
		"0041":     "A",
		"41":       "A",
		"20B9":     "₹",
		"D83DDE00": "\U0001F600",
		"00500061": "Pa",
	}
	for in, want := range tests {
		if got := utf16Hex(in); got != want {
			t.Errorf("utf16Hex(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUTF16Text(t *testing.T) {
	if got, ok := utf16Text([]byte{0x00, 0x41, 0x20, 0xB9}); !ok || got != "A₹" {
		t.Errorf("got %q, %v", got, ok)
	}
	if _, ok := utf16Text([]byte{0x48, 0x65}); ok {
		t.Error("single-byte text should not decode as UTF-16")
	}
}

func TestToUnicodeDecode(t *testing.T) {
	cm := collectToUnicode([][]byte{[]byte(toUnicodeCMap)})
	if cm.minBytes != 2 || cm.maxBytes != 2 {
		t.Fatalf("code width: got %d-%d, want 2-2", cm.minBytes, cm.maxBytes)
	}
	if got := cm.decode([]byte{0x00, 0x01, 0x00, 0x06, 0x00, 0x19, 0xFF, 0xFF}); got != "P₹9" {
		t.Errorf("decode: got %q", got)
	}
	if got := (toUnicode{}).decode([]byte("abc")); got != "" {
		t.Errorf("empty map decode: got %q", got)
	}
}
