package mailbox

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var ErrUnsupportedFormat = errors.New("unsupported attachment format")

func htmlToText(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return page
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head":
				return
			case "br":
				sb.WriteString("\n")
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && (n.Data == "p" || n.Data == "div" || n.Data == "li" || n.Data == "tr") {
			sb.WriteString("\n")
		}
	}
	walk(doc)

	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if line = strings.TrimSpace(strings.ReplaceAll(line, "\u00a0", " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// ExtractText turns attachment bytes into plain text based on the file
// extension. Plain text, HTML and Word documents are supported.
func ExtractText(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".csv", ".md", ".json", ".log":
		return strings.ToValidUTF8(string(data), ""), nil
	case ".html", ".htm":
		return htmlToText(string(data)), nil
	case ".docx":
		return docxText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// docxText reads the paragraphs of word/document.xml.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("invalid docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return wordParagraphs(rc)
	}
	return "", errors.New("invalid docx: missing word/document.xml")
}

func wordParagraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		paras []string
		cur   strings.Builder
		inT   bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("invalid docx xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inT = true
			case "tab":
				cur.WriteString("\t")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inT = false
			case "p":
				if s := strings.TrimSpace(cur.String()); s != "" {
					paras = append(paras, s)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inT {
				cur.Write(t)
			}
		}
	}
	return strings.Join(paras, "\n"), nil
}

var (
	quotedTerm   = regexp.MustCompile(`"([^"]+)"`)
	fromPattern  = regexp.MustCompile(`from\s+([a-zA-Z0-9@.]+)`)
	subjPattern  = regexp.MustCompile(`subject:\s*([^\s]+)`)
	querySkipped = map[string]bool{
		"email": true, "find": true, "search": true, "show": true, "get": true,
		"my": true, "the": true, "about": true, "from": true, "to": true,
	}
)

type period struct {
	words []string
	query string
}

var periods = []period{
	{[]string{"today", "hôm nay"}, "newer_than:1d"},
	{[]string{"yesterday", "hôm qua"}, "newer_than:2d older_than:1d"},
	{[]string{"this week", "tuần này"}, "newer_than:7d"},
	{[]string{"this month", "tháng này"}, "newer_than:30d"},
}

// BuildQuery turns a natural-language request into Gmail search syntax:
// a time window, quoted phrases, from: and subject: filters, then up to five
// remaining keywords.
func BuildQuery(message string) string {
	lower := strings.ToLower(message)
	var parts []string

periodLoop:
	for _, p := range periods {
		for _, w := range p.words {
			if strings.Contains(lower, w) {
				parts = append(parts, p.query)
				break periodLoop
			}
		}
	}

	for _, m := range quotedTerm.FindAllStringSubmatch(message, -1) {
		parts = append(parts, `"`+m[1]+`"`)
	}
	if m := fromPattern.FindStringSubmatch(lower); m != nil {
		parts = append(parts, "from:"+m[1])
	}
	if m := subjPattern.FindStringSubmatch(lower); m != nil {
		parts = append(parts, "subject:"+m[1])
	}

	var words []string
	for _, w := range strings.Fields(quotedTerm.ReplaceAllString(message, " ")) {
		if querySkipped[strings.ToLower(w)] || len([]rune(w)) <= 2 || strings.Contains(w, ":") {
			continue
		}
		words = append(words, w)
		if len(words) == 5 {
			break
		}
	}

	if len(parts) == 0 && len(words) == 0 {
		return message
	}
	return strings.Join(append(parts, words...), " ")
}
