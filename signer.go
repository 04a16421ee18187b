package juxfix

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// Enveloper computes an enveloped signature over a document root. The
// returned element is a copy of the root with the Signature block appended
// as its last child; the original element is left untouched.
//
// The interface isolates the cryptographic backend from the structural
// signing logic, so Sign can be exercised with a stub and the backend
// swapped without touching placement rules.
type Enveloper interface {
	Envelope(root *etree.Element) (*etree.Element, error)
}

// XMLDSigEnveloper signs with an XML-DSig enveloped signature using
// exclusive canonicalization and SHA-256 digests.
type XMLDSigEnveloper struct {
	key  crypto.Signer
	cert *x509.Certificate
}

// NewEnveloper builds an XMLDSigEnveloper for an RSA or ECDSA key. The
// certificate is embedded in the signature's X509Data; when nil, an
// ephemeral self-signed certificate is minted from the key so the signature
// always carries one.
func NewEnveloper(key crypto.Signer, cert *x509.Certificate) (*XMLDSigEnveloper, error) {
	switch key.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey:
	default:
		return nil, &SigningError{Err: fmt.Errorf("unsupported key type %T (want RSA or ECDSA)", key)}
	}
	if cert == nil {
		minted, err := selfSign(key)
		if err != nil {
			return nil, &SigningError{Err: err}
		}
		cert = minted
	}
	return &XMLDSigEnveloper{key: key, cert: cert}, nil
}

// Certificate returns the certificate embedded in produced signatures.
func (e *XMLDSigEnveloper) Certificate() *x509.Certificate {
	return e.cert
}

// Envelope canonicalizes root as it stands, digests it, and returns a signed
// copy with the Signature block as the last child.
func (e *XMLDSigEnveloper) Envelope(root *etree.Element) (*etree.Element, error) {
	ctx, err := dsig.NewSigningContext(e.key, [][]byte{e.cert.Raw})
	if err != nil {
		return nil, &SigningError{Err: err}
	}
	ctx.Canonicalizer = dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")

	method := dsig.RSASHA256SignatureMethod
	if _, ok := e.key.(*ecdsa.PrivateKey); ok {
		method = dsig.ECDSASHA256SignatureMethod
	}
	if err := ctx.SetSignatureMethod(method); err != nil {
		return nil, &SigningError{Err: err}
	}

	signed, err := ctx.SignEnveloped(root)
	if err != nil {
		return nil, &SigningError{Err: err}
	}
	return signed, nil
}

// Sign applies an enveloped signature to the document. Any previous
// Signature children of the root are removed first, so re-signing replaces
// the old block rather than stacking a second one; the digest covers the
// document minus the signature either way.
func Sign(doc *Document, env Enveloper) error {
	root := doc.Root()
	for _, child := range root.ChildElements() {
		if child.Tag == "Signature" {
			root.RemoveChild(child)
		}
	}
	signed, err := env.Envelope(root)
	if err != nil {
		return err
	}
	doc.tree.SetRoot(signed)
	return nil
}

// VerifyEnveloped checks the enveloped signature of a signed fixture against
// the given trust roots.
func VerifyEnveloped(data []byte, roots []*x509.Certificate) error {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		return &ParseError{Err: err}
	}
	root := tree.Root()
	if root == nil {
		return &ParseError{Err: errors.New("document has no root element")}
	}

	ctx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{Roots: roots})
	if _, err := ctx.Validate(root); err != nil {
		return &SigningError{Err: err}
	}
	return nil
}

func selfSign(key crypto.Signer) (*x509.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "juxfix fixture signer",
			Organization: []string{"juxfix"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, key.Public(), key)
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(der)
}
