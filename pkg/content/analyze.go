package content

import (
	"strings"

	"go-botlens/pkg/models"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Analyze 统计正文词数、h1-h6 标题数、图片数，以及是否带 JSON-LD 结构化数据
func Analyze(body string) (models.ContentMetrics, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return models.ContentMetrics{}, err
	}

	var m models.ContentMetrics
	walk(doc, &m)
	return m, nil
}

func walk(n *html.Node, m *models.ContentMetrics) {
	switch n.Type {
	case html.TextNode:
		m.WordCount += len(strings.Fields(n.Data))
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script:
			if isJSONLD(n) {
				m.HasSchema = true
			}
			return
		case atom.Style, atom.Noscript, atom.Template:
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			m.HeadingCount++
		case atom.Img:
			m.ImageCount++
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, m)
	}
}

func isJSONLD(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "type" && strings.EqualFold(strings.TrimSpace(a.Val), "application/ld+json") {
			return true
		}
	}
	return false
}
