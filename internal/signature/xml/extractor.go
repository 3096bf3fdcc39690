package xml

import (
	"bytes"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"github.com/rezonia/tax-ledger/internal/signature"
)

// XMLDSigNamespace is the namespace of ds:Signature
const XMLDSigNamespace = "http://www.w3.org/2000/09/xmldsig#"

// SignatureExtractor locates the XMLDSig signature of a UBL document
type SignatureExtractor struct{}

// NewSignatureExtractor creates a new signature extractor
func NewSignatureExtractor() *SignatureExtractor {
	return &SignatureExtractor{}
}

// ExtractionResult contains the extracted signature and related elements
type ExtractionResult struct {
	// SignatureElement is the <Signature> element
	SignatureElement *etree.Element
	// InExtensions is true when the signature was found under UBLExtensions
	InExtensions bool
	// Root is the document element, e.g. Invoice or AttachedDocument
	Root string
}

// Extract finds the XMLDSig signature in data. UBLExtensions is searched
// first; any Signature element in the tree is accepted as a fallback.
func (e *SignatureExtractor) Extract(data []byte) (*ExtractionResult, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, signature.ErrMalformedDocument(err)
	}

	root := doc.Root()
	if root == nil {
		return nil, signature.ErrMalformedDocument(fmt.Errorf("empty XML document"))
	}

	result := &ExtractionResult{Root: localName(root)}

	for _, ext := range childrenNamed(root, "UBLExtensions") {
		if sig := findElementRecursive(ext, "Signature"); sig != nil {
			result.SignatureElement = sig
			result.InExtensions = true
			return result, nil
		}
	}

	if sig := findElementRecursive(root, "Signature"); sig != nil {
		result.SignatureElement = sig
		return result, nil
	}

	return nil, signature.ErrNoSignature()
}

// CanExtract returns true if the data appears to be XML with a signature
func (e *SignatureExtractor) CanExtract(data []byte) bool {
	if len(data) < 5 {
		return false
	}

	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("<")) {
		return false
	}

	return bytes.Contains(data, []byte("<Signature")) ||
		bytes.Contains(data, []byte(":Signature"))
}

// findElementRecursive searches for an element by local name, depth-first
func findElementRecursive(elem *etree.Element, name string) *etree.Element {
	if localName(elem) == name {
		return elem
	}
	for _, child := range elem.ChildElements() {
		if found := findElementRecursive(child, name); found != nil {
			return found
		}
	}
	return nil
}

func childrenNamed(elem *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	for _, c := range elem.ChildElements() {
		if localName(c) == name {
			out = append(out, c)
		}
	}
	return out
}

func localName(elem *etree.Element) string {
	tag := elem.Tag
	if idx := strings.IndexByte(tag, ':'); idx >= 0 {
		tag = tag[idx+1:]
	}
	return tag
}

// ExtractCertificate decodes the first X509Certificate under KeyInfo
func ExtractCertificate(sig *etree.Element) (*x509.Certificate, error) {
	keyInfo := findChild(sig, "KeyInfo")
	if keyInfo == nil {
		return nil, signature.ErrNoCertificate()
	}
	certElem := findElementRecursive(keyInfo, "X509Certificate")
	if certElem == nil {
		return nil, signature.ErrNoCertificate()
	}

	raw := strings.Join(strings.Fields(certElem.Text()), "")
	if raw == "" {
		return nil, signature.ErrNoCertificate()
	}

	der, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		// Some signers embed a full PEM block
		block, _ := pem.Decode([]byte(certElem.Text()))
		if block == nil {
			return nil, signature.ErrInvalidCertificate(err)
		}
		der = block.Bytes
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, signature.ErrInvalidCertificate(err)
	}
	return cert, nil
}

// ExtractSigningTime reads the XAdES SigningTime of a signature
func ExtractSigningTime(sig *etree.Element) (*time.Time, error) {
	elem := findElementRecursive(sig, "SigningTime")
	if elem == nil {
		return nil, nil
	}
	raw := strings.TrimSpace(elem.Text())
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse signing time: %s", raw)
}

// algorithm returns the Algorithm attribute of the first descendant named name
func algorithm(sig *etree.Element, name string) string {
	signedInfo := findChild(sig, "SignedInfo")
	if signedInfo == nil {
		return ""
	}
	if elem := findElementRecursive(signedInfo, name); elem != nil {
		return elem.SelectAttrValue("Algorithm", "")
	}
	return ""
}

func findChild(elem *etree.Element, name string) *etree.Element {
	for _, c := range elem.ChildElements() {
		if localName(c) == name {
			return c
		}
	}
	return nil
}
