package juxfix

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"strings"
	"testing"

	"github.com/beevik/etree"
	. "github.com/smartystreets/goconvey/convey"
)

const enrichedSuite = `<?xml version="1.0" encoding="UTF-8"?>
<testsuite name="pkg" tests="2">
  <properties>
    <property name="jux.hostname" value="build-server-01"/>
    <property name="jux.ci_provider" value="github"/>
  </properties>
  <testcase classname="pkg.TestA" name="TestA" time="0.010"/>
  <testcase classname="pkg.TestB" name="TestB" time="0.020"/>
</testsuite>`

func elementString(el *etree.Element) string {
	d := etree.NewDocument()
	d.SetRoot(el.Copy())
	s, _ := d.WriteToString()
	return s
}

func TestSignAndVerifyRSA(t *testing.T) {
	Convey("Given an RSA key with no certificate", t, func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		So(err, ShouldBeNil)

		env, err := NewEnveloper(key, nil)
		So(err, ShouldBeNil)
		So(env.Certificate(), ShouldNotBeNil)

		Convey("When signing an enriched testsuite document", func() {
			doc, err := Parse([]byte(enrichedSuite))
			So(err, ShouldBeNil)

			before := doc.Root().ChildElements()
			snapshots := make([]string, len(before))
			for i, el := range before {
				snapshots[i] = elementString(el)
			}

			So(Sign(doc, env), ShouldBeNil)

			Convey("Then the Signature block is the new last child", func() {
				children := doc.Root().ChildElements()
				So(len(children), ShouldEqual, len(before)+1)
				So(children[len(children)-1].Tag, ShouldEqual, "Signature")
			})

			Convey("And the pre-existing children are untouched", func() {
				children := doc.Root().ChildElements()
				for i, want := range snapshots {
					So(elementString(children[i]), ShouldEqual, want)
				}
			})

			Convey("And the serialized document verifies against the signer certificate", func() {
				data, err := doc.Bytes()
				So(err, ShouldBeNil)
				So(VerifyEnveloped(data, []*x509.Certificate{env.Certificate()}), ShouldBeNil)
			})

			Convey("And tampering with the content invalidates the signature", func() {
				data, err := doc.Bytes()
				So(err, ShouldBeNil)
				tampered := strings.Replace(string(data), "TestA", "TestZ", 1)
				err = VerifyEnveloped([]byte(tampered), []*x509.Certificate{env.Certificate()})
				So(err, ShouldNotBeNil)
			})

			Convey("And re-signing replaces the previous block instead of stacking", func() {
				So(Sign(doc, env), ShouldBeNil)
				count := 0
				for _, child := range doc.Root().ChildElements() {
					if child.Tag == "Signature" {
						count++
					}
				}
				So(count, ShouldEqual, 1)

				data, err := doc.Bytes()
				So(err, ShouldBeNil)
				So(VerifyEnveloped(data, []*x509.Certificate{env.Certificate()}), ShouldBeNil)
			})
		})
	})
}

func TestSignAndVerifyECDSA(t *testing.T) {
	Convey("Given an ECDSA P-256 key", t, func() {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		So(err, ShouldBeNil)

		env, err := NewEnveloper(key, nil)
		So(err, ShouldBeNil)

		Convey("When signing a testsuites document", func() {
			doc, err := Parse([]byte(sampleSuites))
			So(err, ShouldBeNil)
			So(Sign(doc, env), ShouldBeNil)

			Convey("Then the signature verifies", func() {
				data, err := doc.Bytes()
				So(err, ShouldBeNil)
				So(VerifyEnveloped(data, []*x509.Certificate{env.Certificate()}), ShouldBeNil)
			})
		})
	})
}

func TestEnveloperRejectsUnsupportedKeys(t *testing.T) {
	Convey("Given an Ed25519 key", t, func() {
		_, key, err := ed25519.GenerateKey(rand.Reader)
		So(err, ShouldBeNil)

		Convey("Then the enveloper refuses it as a SigningError", func() {
			_, err := NewEnveloper(key, nil)
			So(err, ShouldNotBeNil)
			So(Classify(err), ShouldEqual, KindSigningError)
		})
	})
}

func TestVerifyEnvelopedMalformedInput(t *testing.T) {
	Convey("Given bytes that are not well-formed XML", t, func() {
		err := VerifyEnveloped([]byte(`<testsuite`), nil)

		Convey("Then verification reports a parse failure", func() {
			So(err, ShouldNotBeNil)
			So(Classify(err), ShouldEqual, KindMalformedXML)
		})
	})
}
