package licenses

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// PackageID identifies one removable license entry on the account
type PackageID int

const removeLinkPrefix = "javascript:RemoveFreeLicense"

// removeCallPattern extracts the first argument of RemoveFreeLicense( id, 'name' )
var removeCallPattern = regexp.MustCompile(`RemoveFreeLicense\(\s*(\d+)\s*,`)

// Parse walks a licenses page and returns the package IDs of every removal
// link in document order. Links whose call cannot be read are skipped.
func Parse(content io.Reader) ([]PackageID, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse licenses page: %w", err)
	}

	ids := make([]PackageID, 0)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if id, ok := packageIDFromHref(getAttr(n, "href")); ok {
				ids = append(ids, id)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return ids, nil
}

func packageIDFromHref(href string) (PackageID, bool) {
	if !strings.HasPrefix(href, removeLinkPrefix) {
		return 0, false
	}
	m := removeCallPattern.FindStringSubmatch(href)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return PackageID(id), true
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
