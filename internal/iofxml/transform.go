// Package iofxml rewrites IOF XML 3.0 result lists before upload.
package iofxml

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"

	"github.com/n0needt0/goodies/results-relay/internal/domain"
)

const (
	PersonTag = "Person"
	IDTag     = "Id"
	NameTag   = "Name"

	indentSpaces = 2

	declaration = `version="1.0" encoding="UTF-8"`
)

// ResultsMarker is present in a source response only when results exist.
const ResultsMarker = "<PersonResult>"

// HasResults reports whether raw contains ResultsMarker.
// Substring check only, the document is not parsed.
func HasResults(raw string) bool {
	return strings.Contains(raw, ResultsMarker)
}

// Transform numbers every Person element 1..n in document order.
// An existing Id child gets its text overwritten, otherwise a new Id is
// inserted in front of the first Name child.
//
// The declared encoding is honored on input; the output is always UTF-8.
//
// Errors are always domain.TransformError.
func Transform(input string) (string, error) {
	if err := checkWellFormed(input); err != nil {
		return "", domain.TransformError{Err: errors.Wrap(err, "malformed xml")}
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromString(input); err != nil {
		return "", domain.TransformError{Err: errors.Wrap(err, "failed to parse xml")}
	}
	if doc.Root() == nil {
		return "", domain.TransformError{Err: errors.New("xml document has no root element")}
	}

	for i, person := range persons(doc.Root(), nil) {
		number(person, i+1)
	}

	ensureDeclaration(doc)
	doc.Indent(indentSpaces)

	out, err := doc.WriteToString()
	if err != nil {
		return "", domain.TransformError{Err: errors.Wrap(err, "failed to serialize xml")}
	}
	return out, nil
}

// persons collects Person elements depth first, in document order.
func persons(e *etree.Element, found []*etree.Element) []*etree.Element {
	if e.Tag == PersonTag {
		found = append(found, e)
	}
	for _, child := range e.ChildElements() {
		found = persons(child, found)
	}
	return found
}

func number(person *etree.Element, n int) {
	value := strconv.Itoa(n)

	if id := person.SelectElement(IDTag); id != nil {
		id.SetText(value)
		return
	}

	id := etree.NewElement(IDTag)
	id.SetText(value)

	if name := person.SelectElement(NameTag); name != nil {
		person.InsertChildAt(name.Index(), id)
		return
	}
	person.AddChild(id)
}

// ensureDeclaration leaves a UTF-8 declaration alone, rewrites one naming
// any other encoding and adds one when missing.
func ensureDeclaration(doc *etree.Document) {
	for _, tok := range doc.Child {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			if enc := declaredEncoding(pi.Inst); enc != "" && !strings.EqualFold(enc, "utf-8") {
				pi.Inst = declaration
			}
			return
		}
	}
	pi := doc.CreateProcInst("xml", declaration)
	doc.RemoveChildAt(pi.Index())
	doc.InsertChildAt(0, pi)
}

// checkWellFormed runs the strict stdlib tokenizer over the document so that
// unbalanced or unterminated elements are rejected before mutation.
func checkWellFormed(input string) error {
	dec := xml.NewDecoder(strings.NewReader(input))
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// declaredEncoding returns the encoding pseudo-attribute of an xml
// declaration body, or "" when absent.
func declaredEncoding(inst string) string {
	_, rest, ok := strings.Cut(inst, "encoding=")
	if !ok || rest == "" {
		return ""
	}
	quote := rest[:1]
	if quote != `"` && quote != "'" {
		return ""
	}
	value, _, ok := strings.Cut(rest[1:], quote)
	if !ok {
		return ""
	}
	return value
}
