// Package loader extracts per-page text from uploaded PDF documents.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Text-showing operators with literal string operands. CID-encoded fonts are
// not decoded; such pages come out empty and the chunk windows skip them.
var (
	tjRe    = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)\s*Tj`)
	tjArrRe = regexp.MustCompile(`\[((?:\\.|[^\]])*)\]\s*TJ`)
	strRe   = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)`)
)

// ExtractPages returns the text of each page of a PDF, in page order. An
// unreadable document is a request-scoped format error; it never corrupts
// any existing state.
func ExtractPages(data []byte) ([]string, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	pages := make([]string, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", pageNr, err)
		}
		if r == nil {
			pages = append(pages, "")
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read page %d content: %w", pageNr, err)
		}
		pages = append(pages, pageText(string(content)))
	}
	return pages, nil
}

// pageText pulls the literal string operands out of a page content stream.
func pageText(content string) string {
	var b strings.Builder
	for _, m := range tjRe.FindAllStringSubmatch(content, -1) {
		b.WriteString(unescape(m[1]))
		b.WriteString(" ")
	}
	for _, m := range tjArrRe.FindAllStringSubmatch(content, -1) {
		for _, s := range strRe.FindAllStringSubmatch(m[1], -1) {
			b.WriteString(unescape(s[1]))
		}
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String())
}

func unescape(s string) string {
	replacer := strings.NewReplacer(
		`\(`, "(",
		`\)`, ")",
		`\\`, `\`,
		`\n`, "\n",
		`\r`, "\r",
		`\t`, "\t",
	)
	return replacer.Replace(s)
}
