// Package archive turns a bookmarked page into a sanitized full-text
// archive: fetch, readability-style extraction, sanitize, cache. Video
// platform URLs bypass the DOM path and synthesize the archive from
// resolver metadata instead.
package archive

import (
	"errors"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoArticle indicates readability extraction yielded no content. This is
// fatal at this layer; retrying belongs to the job runtime.
var ErrNoArticle = errors.New("readability extraction returned null")

// extractedArticle is the raw readability output before sanitization.
type extractedArticle struct {
	Title     string
	Byline    string
	SiteName  string
	Excerpt   string
	Language  string
	Direction string
	HTML      string
}

// candidateSelectors are tried in order before falling back to scoring
// arbitrary containers.
var candidateSelectors = []string{
	"article",
	"main",
	"[role='main']",
	"#content",
	".post-content",
	".article-content",
	".entry-content",
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// extractArticle runs a readability-style extraction against a parsed
// document. Candidates are scored by text mass discounted by link density;
// a document with no scoring candidate fails with ErrNoArticle.
func extractArticle(doc *goquery.Document) (*extractedArticle, error) {
	content := selectContent(doc)
	if content == nil {
		return nil, ErrNoArticle
	}

	html, err := goquery.OuterHtml(content)
	if err != nil || strings.TrimSpace(content.Text()) == "" {
		return nil, ErrNoArticle
	}

	article := &extractedArticle{
		Title:     extractTitle(doc),
		Byline:    extractByline(doc),
		SiteName:  metaContent(doc, "meta[property='og:site_name']"),
		Excerpt:   extractExcerpt(doc, content),
		Language:  docLanguage(doc),
		Direction: docDirection(doc),
		HTML:      html,
	}
	return article, nil
}

// selectContent picks the best content container: first a known content
// selector with enough text, then the highest-scoring <div>/<section>.
func selectContent(doc *goquery.Document) *goquery.Selection {
	for _, sel := range candidateSelectors {
		candidate := doc.Find(sel).First()
		if candidate.Length() > 0 && scoreNode(candidate) > 0 {
			return candidate
		}
	}

	var best *goquery.Selection
	bestScore := 0.0
	doc.Find("div, section").Each(func(_ int, s *goquery.Selection) {
		score := scoreNode(s)
		if score > bestScore {
			best = s
			bestScore = score
		}
	})
	if best != nil {
		return best
	}

	// Degenerate documents: a body with paragraph text but no containers.
	body := doc.Find("body").First()
	if body.Length() > 0 && scoreNode(body) > 0 {
		return body
	}
	return nil
}

// scoreNode measures paragraph text mass, discounted by link density. A node
// whose text lives mostly in anchors (navigation, link farms) scores near
// zero.
func scoreNode(s *goquery.Selection) float64 {
	var textLen int
	s.Find("p, pre, blockquote, li").Each(func(_ int, p *goquery.Selection) {
		textLen += len(strings.TrimSpace(p.Text()))
	})
	if textLen < 25 {
		return 0
	}

	totalLen := len(strings.TrimSpace(s.Text()))
	if totalLen == 0 {
		return 0
	}
	linkLen := 0
	s.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkLen += len(strings.TrimSpace(a.Text()))
	})
	linkDensity := float64(linkLen) / float64(totalLen)

	return float64(textLen) * (1.0 - linkDensity)
}

func extractTitle(doc *goquery.Document) string {
	if og := metaContent(doc, "meta[property='og:title']"); og != "" {
		return og
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func extractByline(doc *goquery.Document) string {
	if author := metaContent(doc, "meta[name='author']"); author != "" {
		return author
	}
	if author := metaContent(doc, "meta[property='article:author']"); author != "" {
		return author
	}
	return strings.TrimSpace(doc.Find("[rel='author'], .byline, .author").First().Text())
}

func extractExcerpt(doc *goquery.Document, content *goquery.Selection) string {
	if desc := metaContent(doc, "meta[name='description']"); desc != "" {
		return desc
	}
	if desc := metaContent(doc, "meta[property='og:description']"); desc != "" {
		return desc
	}
	first := strings.TrimSpace(content.Find("p").First().Text())
	return truncate(collapseWhitespace(first), 300)
}

func docLanguage(doc *goquery.Document) string {
	lang, _ := doc.Find("html").Attr("lang")
	return strings.TrimSpace(lang)
}

func docDirection(doc *goquery.Document) string {
	if dir, ok := doc.Find("html").Attr("dir"); ok {
		return strings.ToLower(strings.TrimSpace(dir))
	}
	if dir, ok := doc.Find("body").Attr("dir"); ok {
		return strings.ToLower(strings.TrimSpace(dir))
	}
	return ""
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
