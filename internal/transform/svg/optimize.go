// Package svg optimizes icon markup and extracts the metadata the stylesheet
// step embeds as inline data URIs.
package svg

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Optimizer strips markup that does not affect rendering: the XML prolog,
// comments, doctype, metadata/title/desc elements and whitespace between tags.
type Optimizer struct{}

// droppedElements are removed together with their content.
var droppedElements = map[string]bool{
	"metadata": true,
	"title":    true,
	"desc":     true,
}

// Optimize returns the reduced markup. Tag and attribute spelling is preserved.
func (Optimizer) Optimize(src []byte) ([]byte, error) {
	z := html.NewTokenizer(bytes.NewReader(src))
	var out bytes.Buffer
	skipDepth := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			return bytes.TrimSpace(out.Bytes()), nil
		case html.CommentToken, html.DoctypeToken:
			// <?xml ...?> is tokenized as a comment
			continue
		case html.StartTagToken:
			name, _ := z.TagName()
			if skipDepth > 0 || droppedElements[string(name)] {
				skipDepth++
				continue
			}
		case html.EndTagToken:
			if skipDepth > 0 {
				skipDepth--
				continue
			}
		case html.SelfClosingTagToken:
			if skipDepth > 0 {
				continue
			}
			name, _ := z.TagName()
			if droppedElements[string(name)] {
				continue
			}
		case html.TextToken:
			if skipDepth > 0 || len(bytes.TrimSpace(z.Raw())) == 0 {
				continue
			}
		}
		out.Write(z.Raw())
	}
}

// ForceRootAttr sets name=value on the first <svg> element of markup and
// renders the document back. The renderer escapes '>' inside text and
// attribute values as "&gt;".
func ForceRootAttr(markup []byte, name, value string) ([]byte, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(markup), body)
	if err != nil {
		return nil, err
	}
	found := false
	for _, n := range nodes {
		if root := findSVG(n); root != nil {
			setAttr(root, name, value)
			found = true
			break
		}
	}
	if !found {
		return markup, nil
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func findSVG(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "svg" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findSVG(c); found != nil {
			return found
		}
	}
	return nil
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, name) && a.Namespace == "" {
			n.Attr[i].Key = name
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}
