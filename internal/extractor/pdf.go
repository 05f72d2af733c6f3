package extractor

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ErrNoReadableText is returned when every extraction method produced
// nothing or produced text that does not look like a statement. Scanned and
// image-only PDFs end up here.
var ErrNoReadableText = errors.New("no readable text could be extracted from PDF")

// pageFunc extracts the text of a single page.
type pageFunc func(page pdf.Page, fonts map[string]*pdf.Font) (string, error)

// method is one way of pulling text out of a PDF. Methods are tried in
// order until one yields readable text.
type method struct {
	name string
	page pageFunc
}

var methods = []method{
	{name: "rows", page: pageByRow},
	{name: "content", page: pageByContent},
	{name: "plain", page: pagePlainText},
}

// ExtractText reads a PDF file and returns the text content of each page.
func ExtractText(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return ExtractReader(f, info.Size())
}

// ExtractReader returns the text content of each page of the PDF in r. The
// per-page methods run first, then whole-document plain text, then a scan of
// the raw content streams.
func ExtractReader(r io.ReaderAt, size int64) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("PDF library crashed: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		if pages := rawFallback(r, size); pages != nil {
			return pages, nil
		}
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	for _, m := range methods {
		pages = eachPage(reader, numPages, m.page)
		if isReadableText(pages) {
			return pages, nil
		}
	}

	if text := documentPlainText(reader); isReadableText([]string{text}) {
		return []string{text}, nil
	}
	if pages := rawFallback(r, size); pages != nil {
		return pages, nil
	}
	return nil, ErrNoReadableText
}

// eachPage applies fn to every page and keeps the non-empty results. Pages
// that fail are skipped.
func eachPage(r *pdf.Reader, numPages int, fn pageFunc) []string {
	fonts := make(map[string]*pdf.Font)
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := safePage(fn, page, fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

// safePage confines a library panic on one page to that page.
func safePage(fn pageFunc, page pdf.Page, fonts map[string]*pdf.Font) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("page extraction panicked: %v", rec)
		}
	}()
	return fn(page, fonts)
}

// pageByRow keeps the library's row grouping, which preserves the
// one-field-per-line layout UPI apps print.
func pageByRow(page pdf.Page, _ map[string]*pdf.Font) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		parts := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// columnGap is the horizontal distance, in points, treated as a column break.
const columnGap = 15

// pageByContent rebuilds rows from raw text objects: pieces are bucketed by
// rounded Y (top of page first) and ordered by X within a row.
func pageByContent(page pdf.Page, _ map[string]*pdf.Font) (string, error) {
	content := page.Content()
	if len(content.Text) == 0 {
		return "", nil
	}

	rows := make(map[int][]pdf.Text)
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		y := int(math.Round(t.Y))
		rows[y] = append(rows[y], t)
	}

	ys := make([]int, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	lines := make([]string, 0, len(ys))
	for _, y := range ys {
		items := rows[y]
		sort.Slice(items, func(a, b int) bool { return items[a].X < items[b].X })

		var sb strings.Builder
		for j, item := range items {
			if j > 0 && item.X-items[j-1].X > columnGap {
				sb.WriteString("  ")
			}
			sb.WriteString(item.S)
		}
		if line := strings.TrimSpace(sb.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func pagePlainText(page pdf.Page, fonts map[string]*pdf.Font) (string, error) {
	return page.GetPlainText(fonts)
}

func documentPlainText(r *pdf.Reader) string {
	rd, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// minTextLen and minQuality are the thresholds below which extracted text
// is treated as garbage from an undecodable font.
const (
	minTextLen = 50
	minQuality = 0.6
)

// textQuality returns the share of characters that are printable ASCII,
// the rupee sign or a non-breaking space. Non-ASCII letters are not counted:
// identity-encoded fonts decode to accented noise.
func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)) {
				readable++
				continue
			}
			if r == '₹' || r == '\u00a0' {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// commonWords appear in virtually every bank or UPI statement. Text that
// contains none of them is almost certainly not a statement.
var commonWords = []string{
	"paid", "received", "upi", "transaction", "debited", "credited",
	"amount", "statement", "balance", "payment", "bank", "date", "ref",
}

func containsCommonWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range commonWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText requires more than minTextLen characters, a readable share
// above minQuality, and at least one statement word.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= minTextLen {
		return false
	}
	if textQuality(pages) <= minQuality {
		return false
	}
	return containsCommonWords(pages)
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
