package juxfix

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSuite = `<?xml version="1.0" encoding="UTF-8"?>
<testsuite name="pkg" tests="2">
  <testcase classname="pkg.TestA" name="TestA" time="0.010"/>
  <testcase classname="pkg.TestB" name="TestB" time="0.020"/>
</testsuite>`

const sampleSuites = `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
  <testsuite name="pkg" tests="1">
    <testcase classname="pkg.TestA" name="TestA" time="0.010"/>
  </testsuite>
</testsuites>`

func TestParseRootTagGate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"testsuite root", sampleSuite, true},
		{"testsuites root", sampleSuites, true},
		{"foreign root", `<foo><bar/></foo>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.in))
			if tt.ok {
				require.NoError(t, err)
				require.NotNil(t, doc.Root())
				return
			}
			var rootErr *UnsupportedRootError
			require.ErrorAs(t, err, &rootErr)
			assert.Equal(t, "foo", rootErr.Tag)
			assert.Equal(t, KindUnsupportedRoot, Classify(err))
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"truncated", `<testsuite name="pkg"><testcase`},
		{"empty", ``},
		{"mismatched tags", `<testsuite></testsuites>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in))
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, KindMalformedXML, Classify(err))
		})
	}
}

func TestPropertiesCreatedAsFirstChild(t *testing.T) {
	doc, err := Parse([]byte(sampleSuite))
	require.NoError(t, err)

	props := doc.Properties()
	require.NotNil(t, props)
	assert.Equal(t, 0, props.Len())

	children := doc.Root().ChildElements()
	require.NotEmpty(t, children)
	assert.Equal(t, "properties", children[0].Tag)
}

func TestPropertiesSingleInstance(t *testing.T) {
	doc, err := Parse([]byte(sampleSuite))
	require.NoError(t, err)

	doc.Properties().Append("jux.a", "1")
	doc.Properties().Append("jux.b", "2")

	count := 0
	for _, child := range doc.Root().ChildElements() {
		if child.Tag == "properties" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, doc.Properties().Len())
}

func TestPropertiesReusesExistingList(t *testing.T) {
	in := `<testsuite name="pkg">
  <properties>
    <property name="existing" value="yes"/>
  </properties>
  <testcase classname="pkg.TestA" name="TestA"/>
</testsuite>`
	doc, err := Parse([]byte(in))
	require.NoError(t, err)

	props := doc.Properties()
	require.Equal(t, 1, props.Len())
	assert.Equal(t, Property{Name: "existing", Value: "yes"}, props.Entries()[0])
}

func TestBytesHasXMLDeclaration(t *testing.T) {
	doc, err := Parse([]byte(`<testsuite name="pkg"/>`))
	require.NoError(t, err)

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, string(out), "<testsuite")
}
