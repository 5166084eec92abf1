// Package htmlx is the HTML-tree side of stage 4b: parsing the raw body
// into a queryable tree (PuerkitoBio/goquery), then reading off the
// headline, the date-mining contexts, and the anchor graph the pipeline
// needs — all against the cleaned text the text-extractor already
// produced.
package htmlx

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Sentimentron/sentropy/internal/urlx"
)

// Parse builds a goquery tree from raw HTML bytes.
func Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("htmlx: parse document: %w", err)
	}
	return doc, nil
}

// headlineLevels is deliberately h6 down to h1, preserving the observed
// behavior of the system this replaces; h1->h6 was probably intended, but
// nothing downstream depends on fixing it.
var headlineLevels = []string{"h6", "h5", "h4", "h3", "h2", "h1"}

// PickHeadline returns the first nonempty hN (N searched 6 down to 1) whose
// text is a substring of cleanedBody (stage 6). Returns "" if none match —
// the headline is optional.
func PickHeadline(doc *goquery.Document, cleanedBody string) string {
	for _, level := range headlineLevels {
		var found string
		doc.Find(level).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.TrimSpace(sel.Text())
			if text == "" {
				return true
			}
			if strings.Contains(cleanedBody, text) {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// LinkTarget is one extracted anchor, already classified by urlx.
type LinkTarget struct {
	Absolute bool
	Domain   string // only set when Absolute
	Path     string
}

// ExtractLinks walks every <a href> in doc, keeping only anchors whose
// visible text is a substring of cleanedBody (stage 10). Anchors whose text
// isn't found are skipped individually rather than aborting the whole
// loop on the first miss.
func ExtractLinks(doc *goquery.Document, cleanedBody string) []LinkTarget {
	var out []LinkTarget
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" || !strings.Contains(cleanedBody, text) {
			return // continue: skip this anchor, keep scanning the rest
		}

		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			domain, path, err := urlx.Split(href)
			if err != nil {
				return
			}
			out = append(out, LinkTarget{Absolute: true, Domain: domain, Path: path})
			return
		}
		out = append(out, LinkTarget{Absolute: false, Path: href})
	})
	return out
}

// DateContext is one date-mining hit from the linguistic services' date
// miner, reduced to the fields htmlx needs to apply the
// matched-text-in-body filter (stage 9).
type DateContext struct {
	MatchedText string
	Preposition string
}

// FilterDateContexts drops contexts whose matched text does not appear in
// cleanedBody (stage 9: "Drop contexts whose matched text is not present in
// the cleaned body").
func FilterDateContexts(contexts []DateContext, cleanedBody string) []DateContext {
	out := make([]DateContext, 0, len(contexts))
	for _, c := range contexts {
		if strings.Contains(cleanedBody, c.MatchedText) {
			out = append(out, c)
		}
	}
	return out
}
