package xml

import (
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// newDocument returns an etree document that converts declared non-UTF-8
// encodings (ISO-8859-1, windows-1252, ...) to UTF-8 while reading.
func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	return doc
}

// localName strips any namespace prefix left on a tag
func localName(elem *etree.Element) string {
	tag := elem.Tag
	if idx := strings.IndexByte(tag, ':'); idx >= 0 {
		tag = tag[idx+1:]
	}
	return tag
}

// child returns the first direct child with the given local name
func child(elem *etree.Element, name string) *etree.Element {
	if elem == nil {
		return nil
	}
	for _, c := range elem.ChildElements() {
		if localName(c) == name {
			return c
		}
	}
	return nil
}

// children returns all direct children with the given local name
func children(elem *etree.Element, name string) []*etree.Element {
	if elem == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range elem.ChildElements() {
		if localName(c) == name {
			out = append(out, c)
		}
	}
	return out
}

// descendant returns the first element below elem with the given local
// name, depth-first in document order.
func descendant(elem *etree.Element, name string) *etree.Element {
	if elem == nil {
		return nil
	}
	for _, c := range elem.ChildElements() {
		if localName(c) == name {
			return c
		}
		if found := descendant(c, name); found != nil {
			return found
		}
	}
	return nil
}

// text returns the element's character data (plain and CDATA runs joined)
// without surrounding whitespace.
func text(elem *etree.Element) string {
	if elem == nil {
		return ""
	}
	var sb strings.Builder
	for _, tok := range elem.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}

func childText(elem *etree.Element, name string) string {
	return text(child(elem, name))
}

// walk visits elem and every element below it in document order until fn
// returns false.
func walk(elem *etree.Element, fn func(*etree.Element) bool) bool {
	if !fn(elem) {
		return false
	}
	for _, c := range elem.ChildElements() {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}
