package crawler

import (
	"bytes"
	"fmt"
	"io"
	"iter"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// LinkExtractor yields the raw href values of the anchors in a page body.
// The sequence is lazy and restartable: every range over it rescans body.
// A non-nil error marks one malformed anchor; extraction of the rest of the
// page is up to the implementation.
type LinkExtractor interface {
	Links(body []byte) iter.Seq2[string, error]
}

// ScanExtractor finds anchors with a single linear scan over an ASCII
// lower-cased copy of the body, so tag and attribute names match in any
// case. Values are cut from the original body and keep their case.
type ScanExtractor struct{}

var anchorOpen = []byte("<a")

// Links implements LinkExtractor.
func (ScanExtractor) Links(body []byte) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		lower := asciiLower(body)
		pos := 0
		for pos < len(lower) {
			i := bytes.Index(lower[pos:], anchorOpen)
			if i < 0 {
				return
			}
			attrs := pos + i + len(anchorOpen)
			if attrs >= len(lower) {
				return
			}
			if !isHTMLSpace(lower[attrs]) {
				// <abbr>, <area>, <article>...
				pos = attrs
				continue
			}

			start, tagEnd, ok := findHref(lower, attrs)
			if !ok {
				pos = tagEnd
				continue
			}

			value, next, err := attrValue(body, lower, start)
			if err != nil {
				yield("", err)
				return
			}
			if !yield(value, nil) {
				return
			}
			pos = next
		}
	}
}

// findHref walks the attributes of a tag starting at from. It returns the
// index of the href value, or ok=false and the index just past the tag.
// Values of other attributes are skipped whole, so a '>' or "href=" inside
// a quoted value neither ends the tag nor matches.
func findHref(lower []byte, from int) (start, tagEnd int, ok bool) {
	pos := from
	for {
		pos = skipSpaces(lower, pos, len(lower))
		if pos >= len(lower) {
			return 0, pos, false
		}
		if lower[pos] == '>' {
			return 0, pos + 1, false
		}

		nameStart := pos
		for pos < len(lower) && !isHTMLSpace(lower[pos]) && lower[pos] != '=' && lower[pos] != '>' {
			pos++
		}
		name := lower[nameStart:pos]

		// Attributes without a value (download, hidden...)
		pos = skipSpaces(lower, pos, len(lower))
		if pos >= len(lower) || lower[pos] != '=' {
			continue
		}

		pos = skipSpaces(lower, pos+1, len(lower))
		if string(name) == "href" {
			return pos, pos, true
		}
		pos = skipValue(lower, pos)
	}
}

// skipValue returns the index after the attribute value starting at pos.
// An unclosed quote runs to the end of the body.
func skipValue(lower []byte, pos int) int {
	if pos < len(lower) && (lower[pos] == '"' || lower[pos] == '\'') {
		if end := bytes.IndexByte(lower[pos+1:], lower[pos]); end >= 0 {
			return pos + 1 + end + 1
		}
		return len(lower)
	}
	for pos < len(lower) && !isHTMLSpace(lower[pos]) && lower[pos] != '>' {
		pos++
	}
	return pos
}

// attrValue reads a quoted or unquoted attribute value starting at start.
// It returns the value from the original body and the index after it.
func attrValue(body, lower []byte, start int) (string, int, error) {
	if start >= len(lower) {
		return "", start, fmt.Errorf("%w: href without value", ErrMalformedLink)
	}

	switch quote := lower[start]; quote {
	case '"', '\'':
		end := bytes.IndexByte(lower[start+1:], quote)
		if end < 0 {
			return "", len(lower), fmt.Errorf("%w: unterminated quote at offset %d", ErrMalformedLink, start)
		}
		valueEnd := start + 1 + end
		return string(body[start+1 : valueEnd]), valueEnd + 1, nil
	default:
		end := start
		for end < len(lower) && !isHTMLSpace(lower[end]) && lower[end] != '>' {
			end++
		}
		return string(body[start:end]), end, nil
	}
}

func skipSpaces(b []byte, from, to int) int {
	for from < to && isHTMLSpace(b[from]) {
		from++
	}
	return from
}

func isHTMLSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// asciiLower lower-cases ASCII letters only, keeping byte offsets aligned
// with the original body.
func asciiLower(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

// TokenizerExtractor uses the golang.org/x/net/html tokenizer. Unlike
// ScanExtractor it decodes entities in href values.
type TokenizerExtractor struct{}

// Links implements LinkExtractor.
func (TokenizerExtractor) Links(body []byte) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		z := html.NewTokenizer(bytes.NewReader(body))
		for {
			switch z.Next() {
			case html.ErrorToken:
				if err := z.Err(); err != nil && err != io.EOF {
					yield("", fmt.Errorf("%w: %v", ErrMalformedLink, err))
				}
				return

			case html.StartTagToken, html.SelfClosingTagToken:
				name, hasAttr := z.TagName()
				if string(name) != "a" || !hasAttr {
					continue
				}
				for {
					key, val, more := z.TagAttr()
					if string(key) == "href" {
						if !yield(string(val), nil) {
							return
						}
						break
					}
					if !more {
						break
					}
				}
			}
		}
	}
}

// QueryExtractor parses the whole document with goquery and selects
// a[href]. The parse error, if any, is reported once and nothing is yielded.
type QueryExtractor struct{}

// Links implements LinkExtractor.
func (QueryExtractor) Links(body []byte) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			yield("", fmt.Errorf("%w: %v", ErrMalformedLink, err))
			return
		}
		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			return yield(href, nil)
		})
	}
}

// NewLinkExtractor returns the extractor registered under name
// ("scan", "html" or "query"); unknown names fall back to the scanner.
func NewLinkExtractor(name string) LinkExtractor {
	switch name {
	case "html":
		return TokenizerExtractor{}
	case "query":
		return QueryExtractor{}
	default:
		return ScanExtractor{}
	}
}
