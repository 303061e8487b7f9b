package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"flashcard_spider/internal/models"
	"flashcard_spider/internal/urlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const (
	SelectorBlock      = ".termlist-item.contentblock"
	SelectorHeading    = "h2.h3"
	SelectorAudio      = ".jq-audio-player audio source[src], .jq-audio-player audio[src]"
	SelectorLabel      = "div.font-500"
	SelectorExamples   = "ul.termlist-item-examples li"
	SelectorImage      = ".termlist-item-images img"
	SelectorPagination = ".pagination .page-item a.page-link"

	definitionLabel = "Định nghĩa"
)

var (
	rePartOfSpeech = regexp.MustCompile(`^\(.*\)$`)
	reIPA          = regexp.MustCompile(`^/.+/$`)

	imageAttrs   = []string{"src", "data-src", "data-lazy", "data-original"}
	loginMarkers = []string{"Đăng nhập", "Đăng ký"}
	reDigitsOnly = regexp.MustCompile(`^[0-9]+$`)
)

// Word is the first text node sitting directly inside the heading, normalized.
// A heading that opens with a child element or blank text has no word.
func Word(heading *goquery.Selection) string {
	if heading.Length() == 0 {
		return ""
	}
	for child := heading.Nodes[0].FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			return NormalizeText(child.Data)
		}
	}
	return ""
}

func PartOfSpeech(heading *goquery.Selection) string {
	text := firstSpanMatching(heading, rePartOfSpeech)
	return strings.TrimSpace(strings.Trim(text, "()"))
}

func IPA(heading *goquery.Selection) string {
	return firstSpanMatching(heading, reIPA)
}

func firstSpanMatching(heading *goquery.Selection, re *regexp.Regexp) string {
	var found string
	heading.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := Text(span)
		if re.MatchString(text) {
			found = text
			return false
		}
		return true
	})
	return found
}

func AudioURL(heading *goquery.Selection, base string) string {
	src, _ := heading.Find(SelectorAudio).First().Attr("src")
	return urlutil.Resolve(base, src)
}

// Definition reads the element right after the first "Định nghĩa" label.
func Definition(block *goquery.Selection) string {
	var definition string
	block.Find(SelectorLabel).EachWithBreak(func(_ int, label *goquery.Selection) bool {
		if !strings.Contains(Text(label), definitionLabel) {
			return true
		}
		next := label.Next()
		if next.Length() > 0 && goquery.NodeName(next) == "div" {
			definition = Text(next)
		}
		return false
	})
	return definition
}

// Examples never returns nil so an entry without examples encodes as [].
func Examples(block *goquery.Selection) []string {
	examples := make([]string, 0)
	block.Find(SelectorExamples).Each(func(_ int, li *goquery.Selection) {
		examples = append(examples, Text(li))
	})
	return examples
}

func ImageURL(block *goquery.Selection, base string) string {
	img := block.Find(SelectorImage).First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range imageAttrs {
		if value := strings.TrimSpace(img.AttrOr(attr, "")); value != "" {
			return urlutil.Resolve(base, value)
		}
	}
	return ""
}

// ParseItem builds a Record from one listing block. Misses leave fields empty.
func ParseItem(block *goquery.Selection, page int, base string) models.Record {
	record := models.Record{
		DefinitionVI: Definition(block),
		ExamplesVI:   Examples(block),
		ImageURL:     ImageURL(block, base),
		Page:         page,
	}

	heading := block.Find(SelectorHeading).First()
	if heading.Length() > 0 {
		record.Word = Word(heading)
		record.PartOfSpeech = PartOfSpeech(heading)
		record.IPA = IPA(heading)
		record.AudioURL = AudioURL(heading, base)
	}
	return record
}

// ParseBlocks returns the records of every listing block that yielded a word.
func ParseBlocks(doc *goquery.Document, page int, base string) []models.Record {
	var records []models.Record
	doc.Find(SelectorBlock).Each(func(_ int, block *goquery.Selection) {
		record := ParseItem(block, page, base)
		if record.Word != "" {
			records = append(records, record)
		}
	})
	return records
}

// NeedsLogin reports a page with no listing blocks that talks about logging in.
func NeedsLogin(doc *goquery.Document) bool {
	if doc.Find(SelectorBlock).Length() > 0 {
		return false
	}
	body := Text(doc.Selection)
	for _, marker := range loginMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(body), "login")
}

// LastPage is the largest numeric page-link label, or 1 without pagination.
func LastPage(doc *goquery.Document) int {
	last := 1
	doc.Find(SelectorPagination).Each(func(_ int, link *goquery.Selection) {
		label := Text(link)
		if !reDigitsOnly.MatchString(label) {
			return
		}
		if n, err := strconv.Atoi(label); err == nil && n > last {
			last = n
		}
	})
	return last
}

func ListingTitle(body []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return ""
	}
	return NormalizeText(article.Title)
}
