package wikipedia

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const wikiPrefix = "/wiki/"

var namespaces = map[string]struct{}{
	"file": {}, "image": {}, "media": {}, "special": {}, "category": {},
	"help": {}, "wikipedia": {}, "wp": {}, "template": {}, "portal": {},
	"talk": {}, "user": {}, "mediawiki": {}, "module": {}, "draft": {},
	"timedtext": {}, "book": {},
	// de, fr, es
	"datei": {}, "bild": {}, "spezial": {}, "kategorie": {}, "hilfe": {},
	"vorlage": {}, "benutzer": {}, "diskussion": {},
	"fichier": {}, "spécial": {}, "catégorie": {}, "aide": {}, "modèle": {},
	"utilisateur": {}, "discussion": {},
	"archivo": {}, "especial": {}, "categoría": {}, "ayuda": {}, "plantilla": {},
	"usuario": {}, "discusión": {},
}

// RewriteLinks points internal /wiki/<Title> links of an HTML fragment at
// <base><lang>/<Title>, keeping any #fragment. Links into non-article
// namespaces and external links are left untouched. An empty base disables
// rewriting.
func RewriteLinks(fragment, base, lang string) (string, error) {
	if base == "" || !strings.Contains(fragment, wikiPrefix) {
		return fragment, nil
	}

	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), container)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	prefix := base + lang + "/"
	var buf bytes.Buffer
	for _, n := range nodes {
		rewrite(n, prefix)
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return buf.String(), nil
}

func rewrite(n *html.Node, prefix string) {
	if n.Type == html.ElementNode && n.DataAtom == atom.A {
		for i, attr := range n.Attr {
			if attr.Namespace != "" || attr.Key != "href" {
				continue
			}
			if target, ok := articleTarget(attr.Val); ok {
				n.Attr[i].Val = prefix + target
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewrite(c, prefix)
	}
}

// articleTarget returns the "<Title>[#fragment]" part of an article link.
func articleTarget(href string) (string, bool) {
	if !strings.HasPrefix(href, wikiPrefix) {
		return "", false
	}
	target := strings.TrimPrefix(href, wikiPrefix)
	title, _, _ := strings.Cut(target, "#")
	if title == "" || isNamespaced(title) {
		return "", false
	}
	return target, true
}

// isNamespaced reports whether title lives outside the main namespace, e.g.
// File:Logo.svg or User_talk:Example. Titles such as Mission:Impossible whose
// prefix is not a known namespace stay in the main namespace.
func isNamespaced(title string) bool {
	if unescaped, err := url.PathUnescape(title); err == nil {
		title = unescaped
	}
	ns, _, found := strings.Cut(title, ":")
	if !found {
		return false
	}
	key := strings.ToLower(strings.ReplaceAll(ns, " ", "_"))
	if _, ok := namespaces[key]; ok {
		return true
	}
	return strings.HasSuffix(key, "_talk") || strings.HasPrefix(key, "discussion_")
}
