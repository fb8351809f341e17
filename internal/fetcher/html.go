package fetcher

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

var skipped = map[string]bool{
	"script": true, "style": true, "meta": true, "link": true, "noscript": true,
}

var chrome = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "aside": true, "form": true,
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// extractArticle keeps the page title and the headings, paragraphs and list
// items of the main content region.
func extractArticle(page string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", err
	}

	var parts []string
	if h1 := findFirst(doc, "h1"); h1 != nil {
		if t := textOf(h1); t != "" {
			parts = append(parts, "# "+t+"\n")
		}
	}

	root := doc
	for _, tag := range []string{"main", "article", "body"} {
		if n := findFirst(doc, tag); n != nil {
			root = n
			break
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped[n.Data] {
				return
			}
			switch n.Data {
			case "h2", "h3", "h4", "p", "li":
				t := textOf(n)
				if len(t) > 10 {
					if n.Data[0] == 'h' {
						level := int(n.Data[1]-'0') + 1
						t = strings.Repeat("#", level) + " " + t
					}
					parts = append(parts, t)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return strings.Join(parts, "\n\n"), nil
}

type headline struct {
	Title string
	URL   string
}

var skippedHrefParts = []string{"/tag/", "/category/", "/login"}

// extractHeadlines collects distinct link titles between 16 and 299
// characters, longest first, capped at 15.
func extractHeadlines(page, pageURL string) ([]headline, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)

	var items []headline
	seen := map[string]bool{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if chrome[n.Data] {
				return
			}
			if n.Data == "a" {
				if h, ok := toHeadline(n, base); ok && !seen[strings.ToLower(h.Title)] {
					seen[strings.ToLower(h.Title)] = true
					items = append(items, h)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	sort.SliceStable(items, func(i, j int) bool {
		return len([]rune(items[i].Title)) > len([]rune(items[j].Title))
	})
	if len(items) > 15 {
		items = items[:15]
	}
	return items, nil
}

func toHeadline(a *html.Node, base *url.URL) (headline, bool) {
	href := attr(a, "href")
	title := textOf(a)
	if href == "" || title == "" {
		return headline{}, false
	}
	n := len([]rune(title))
	if n <= 15 || n >= 300 {
		return headline{}, false
	}
	if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return headline{}, false
	}
	lower := strings.ToLower(href)
	for _, p := range skippedHrefParts {
		if strings.Contains(lower, p) {
			return headline{}, false
		}
	}

	link := href
	if base != nil {
		if ref, err := url.Parse(href); err == nil {
			link = base.ResolveReference(ref).String()
		}
	}
	return headline{Title: title, URL: link}, true
}
