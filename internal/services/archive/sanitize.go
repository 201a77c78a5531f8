package archive

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedTags is the sanitizer allow-list. Elements outside it are unwrapped
// (children kept) unless listed in droppedTags.
var allowedTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "blockquote": true, "br": true,
	"caption": true, "code": true, "dd": true, "div": true, "dl": true,
	"dt": true, "em": true, "figcaption": true, "figure": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"hr": true, "i": true, "img": true, "li": true, "ol": true, "p": true,
	"pre": true, "q": true, "small": true, "span": true, "strong": true,
	"sub": true, "sup": true, "table": true, "tbody": true, "td": true,
	"tfoot": true, "th": true, "thead": true, "tr": true, "u": true,
	"ul": true,
}

// droppedTags are removed along with their entire subtree.
var droppedTags = map[string]bool{
	"script": true, "style": true, "iframe": true, "object": true,
	"embed": true, "form": true, "input": true, "button": true,
	"select": true, "textarea": true, "noscript": true, "svg": true,
	"canvas": true, "audio": true, "video": true, "link": true,
	"meta": true, "template": true,
}

// allowedAttrs maps tag name to its permitted attributes.
var allowedAttrs = map[string]map[string]bool{
	"a":   {"href": true, "title": true},
	"img": {"src": true, "alt": true, "title": true, "width": true, "height": true},
	"td":  {"colspan": true, "rowspan": true},
	"th":  {"colspan": true, "rowspan": true},
}

// sanitizeHTML rewrites an HTML fragment against the allow-list: dropped
// tags lose their subtree, unknown tags are unwrapped, attributes not on the
// per-tag allow-list are removed, and javascript: URLs are stripped.
func sanitizeHTML(fragment string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		for _, cleaned := range sanitizeNode(n) {
			if err := html.Render(&buf, cleaned); err != nil {
				return "", err
			}
		}
	}
	return buf.String(), nil
}

// sanitizeNode returns the sanitized replacement nodes for n: the node
// itself (cleaned), its children (unwrap), or nothing (drop).
func sanitizeNode(n *html.Node) []*html.Node {
	switch n.Type {
	case html.TextNode:
		return []*html.Node{n}
	case html.ElementNode:
		// handled below
	default:
		return nil
	}

	tag := strings.ToLower(n.Data)
	if droppedTags[tag] {
		return nil
	}

	children := detachChildren(n)
	var cleanedChildren []*html.Node
	for _, c := range children {
		cleanedChildren = append(cleanedChildren, sanitizeNode(c)...)
	}

	if !allowedTags[tag] {
		return cleanedChildren
	}

	n.Attr = filterAttrs(tag, n.Attr)
	for _, c := range cleanedChildren {
		n.AppendChild(c)
	}
	return []*html.Node{n}
}

func detachChildren(n *html.Node) []*html.Node {
	var children []*html.Node
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		children = append(children, c)
		c = next
	}
	return children
}

func filterAttrs(tag string, attrs []html.Attribute) []html.Attribute {
	allowed := allowedAttrs[tag]
	var kept []html.Attribute
	for _, a := range attrs {
		name := strings.ToLower(a.Key)
		if allowed == nil || !allowed[name] {
			continue
		}
		if (name == "href" || name == "src") && !safeURL(a.Val) {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func safeURL(raw string) bool {
	v := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "data:") || strings.HasPrefix(v, "vbscript:") {
		return false
	}
	return true
}
