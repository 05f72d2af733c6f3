package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildPDF writes a minimal single-page PDF with one text row per line,
// positioned top to bottom with Tm so row grouping sees distinct rows.
func buildPDF(lines []string) []byte {
	var content bytes.Buffer
	y := 760
	for _, l := range lines {
		fmt.Fprintf(&content, "BT /F1 11 Tf 1 0 0 1 56 %d Tm (%s) Tj ET\n", y, l)
		y -= 16
	}

	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

var statementLines = []string{
	"PhonePe Transaction Statement",
	"Paid to Zomato Rs 450.00 12 Dec 2025",
	"Received from Rahul Kumar Rs 2,000.00 13 Dec 2025",
}

func TestExtractReader(t *testing.T) {
	data := buildPDF(statementLines)

	pages, err := ExtractReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("pages: got %d, want 1", len(pages))
	}
	for _, want := range statementLines {
		if !strings.Contains(pages[0], want) {
			t.Errorf("page text missing %q:\n%s", want, pages[0])
		}
	}
	if got := strings.Split(pages[0], "\n"); len(got) != len(statementLines) {
		t.Errorf("rows: got %d, want %d", len(got), len(statementLines))
	}
}

func TestExtractReader_NotAPDF(t *testing.T) {
	data := []byte("Paid to Zomato Rs 450.00 12 Dec 2025, plain text is not a PDF")
	_, err := ExtractReader(bytes.NewReader(data), int64(len(data)))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, ErrNoReadableText) {
		t.Errorf("a non-PDF should fail to open, got %v", err)
	}
}

func TestExtractReader_NoReadableText(t *testing.T) {
	data := buildPDF([]string{"x"})
	_, err := ExtractReader(bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, ErrNoReadableText) {
		t.Fatalf("got %v, want ErrNoReadableText", err)
	}
}

func TestExtractText_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.pdf")
	if err := os.WriteFile(path, buildPDF(statementLines), 0o644); err != nil {
		t.Fatal(err)
	}

	pages, err := ExtractText(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) == 0 || !strings.Contains(pages[0], "Paid to Zomato") {
		t.Errorf("unexpected pages: %q", pages)
	}

	if _, err := ExtractText(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIsReadableText(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{"statement text", []string{"Paid to Zomato ₹ 450.00 12 Dec 2025 UPI Ref 123456789012"}, true},
		{"too short", []string{"Paid ₹ 10"}, false},
		{"no statement words", []string{strings.Repeat("lorem ipsum dolor ", 5)}, false},
		{"garbage glyphs", []string{strings.Repeat("ÄÖÜßé", 20) + " paid"}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isReadableText(tt.pages); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
