package juxfix

import (
	"errors"

	"github.com/beevik/etree"
)

// Root tags accepted by the fixture pipeline.
const (
	RootTestsuite  = "testsuite"
	RootTestsuites = "testsuites"
)

// Document is an in-memory JUnit XML report rooted at a testsuite or
// testsuites element.
type Document struct {
	tree *etree.Document
}

// Parse loads a JUnit XML document from its serialized form. A byte stream
// that is not well-formed XML yields a ParseError; a well-formed document
// whose root tag is outside the accepted set yields an UnsupportedRootError.
func Parse(data []byte) (*Document, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, &ParseError{Err: err}
	}
	root := tree.Root()
	if root == nil {
		return nil, &ParseError{Err: errors.New("document has no root element")}
	}
	switch root.Tag {
	case RootTestsuite, RootTestsuites:
	default:
		return nil, &UnsupportedRootError{Tag: root.Tag}
	}
	return &Document{tree: tree}, nil
}

// Root returns the document's root element.
func (d *Document) Root() *etree.Element {
	return d.tree.Root()
}

// Bytes serializes the document as UTF-8 XML with a declaration. Source
// formatting is preserved: re-indenting would alter whitespace text nodes
// and break the canonical digest of a signed document.
func (d *Document) Bytes() ([]byte, error) {
	out := etree.NewDocument()
	out.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	out.SetRoot(d.tree.Root().Copy())
	return out.WriteToBytes()
}

// Property is one name/value pair of a property list.
type Property struct {
	Name  string
	Value string
}

// PropertyList is the single properties container of a document. It is
// always the first child of the root element; Properties creates it there
// when absent, so a PropertyList handle implies both invariants hold.
type PropertyList struct {
	el *etree.Element
}

// Properties returns the document's property list, creating an empty one as
// the root's first child if the document has none.
func (d *Document) Properties() *PropertyList {
	root := d.tree.Root()
	for _, child := range root.ChildElements() {
		if child.Tag == "properties" {
			return &PropertyList{el: child}
		}
	}
	el := etree.NewElement("properties")
	root.InsertChildAt(0, el)
	return &PropertyList{el: el}
}

// Append adds one property element after any existing entries. Colliding
// names are kept; the list is additive-only.
func (p *PropertyList) Append(name, value string) {
	prop := p.el.CreateElement("property")
	prop.CreateAttr("name", name)
	prop.CreateAttr("value", value)
}

// Len returns the number of property entries.
func (p *PropertyList) Len() int {
	return len(p.el.SelectElements("property"))
}

// Entries returns the property entries in document order.
func (p *PropertyList) Entries() []Property {
	els := p.el.SelectElements("property")
	entries := make([]Property, 0, len(els))
	for _, el := range els {
		entries = append(entries, Property{
			Name:  el.SelectAttrValue("name", ""),
			Value: el.SelectAttrValue("value", ""),
		})
	}
	return entries
}
