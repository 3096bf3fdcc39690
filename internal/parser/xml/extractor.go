package xml

import (
	"bytes"
	"encoding/xml"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"github.com/rezonia/tax-ledger/internal/model"
)

// documentRoots maps the root element local names accepted as an invoice
// payload to the document type they carry.
var documentRoots = map[string]model.DocumentType{
	"Invoice":     model.DocumentTypeInvoice,
	"Factura":     model.DocumentTypeInvoice,
	"CreditNote":  model.DocumentTypeCreditNote,
	"NotaCredito": model.DocumentTypeCreditNote,
	"DebitNote":   model.DocumentTypeDebitNote,
	"NotaDebito":  model.DocumentTypeDebitNote,
}

var (
	cdataPattern = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	declPattern  = regexp.MustCompile(`^\s*<\?xml\s[^>]*\?>`)
)

// DocumentType returns the document type for a root local name
func DocumentType(root string) model.DocumentType {
	if dt, ok := documentRoots[root]; ok {
		return dt
	}
	return model.DocumentTypeUnknown
}

// RootName returns the local name of the first element in content, or ""
// when content does not start like an XML document.
func RootName(content []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = charset.NewReaderLabel
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local
		}
	}
}

// IsDocument reports whether content is itself an invoice payload
func IsDocument(content []byte) bool {
	_, ok := documentRoots[RootName(content)]
	return ok
}

// Extract isolates the invoice XML carried by a document blob.
//
// The blob may be the invoice itself or a wrapper envelope (such as an
// AttachedDocument) holding the invoice as CDATA or escaped text in one of
// its elements. Blobs without a payload yield an ExtractionError wrapping
// model.ErrNotFound; blobs that cannot be read as XML and carry no
// recoverable CDATA payload yield a ParseError.
func Extract(data []byte) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, model.NewExtractionError("blob", "empty document", model.ErrNotFound)
	}

	if IsDocument(data) {
		return data, nil
	}

	doc := newDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		if payload := salvageCDATA(data); payload != nil {
			return payload, nil
		}
		return nil, model.NewParseError("blob", "xml", "document is not well-formed", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, model.NewParseError("blob", "root", "document has no root element", nil)
	}

	var payload []byte
	walk(root, func(elem *etree.Element) bool {
		content := text(elem)
		if len(content) == 0 || content[0] != '<' {
			return true
		}
		if IsDocument([]byte(content)) {
			payload = decodedPayload(content)
			return false
		}
		return true
	})
	if payload != nil {
		return payload, nil
	}

	return nil, model.NewExtractionError(localName(root), "no invoice payload in document", model.ErrNotFound)
}

// decodedPayload returns a payload taken from element text. The text is
// already UTF-8, so a leading XML declaration is dropped to keep its
// encoding attribute from being applied a second time.
func decodedPayload(content string) []byte {
	return []byte(strings.TrimSpace(declPattern.ReplaceAllString(content, "")))
}

// salvageCDATA scans a malformed blob for a CDATA section holding an invoice
func salvageCDATA(data []byte) []byte {
	for _, m := range cdataPattern.FindAllSubmatch(data, -1) {
		inner := bytes.TrimSpace(m[1])
		if IsDocument(inner) {
			return inner
		}
	}
	return nil
}
