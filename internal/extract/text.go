package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var reWhitespace = regexp.MustCompile(`[\s\p{Z}]+`)

// NormalizeText collapses whitespace runs (NBSP included) to one space and trims.
func NormalizeText(text string) string {
	text = reWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Text joins every text node under sel with a space, then normalizes.
// goquery's Text() glues adjacent nodes together ("foo<b>bar</b>" -> "foobar").
func Text(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}
	var parts []string
	for _, node := range sel.Nodes {
		collectText(node, &parts)
	}
	return NormalizeText(strings.Join(parts, " "))
}

func collectText(node *html.Node, parts *[]string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		*parts = append(*parts, node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, parts)
	}
}
