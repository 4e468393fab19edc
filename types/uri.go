package types

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	cid "github.com/ipfs/go-cid"
	multibase "github.com/multiformats/go-multibase"
)

// URI is an interface type for content-addressable dataset URIs.
// Fragments are either empty or a canonical blank node label like "_:c14n0".
type URI interface {
	Parse(uri string) (c cid.Cid, fragment string)
	String(c cid.Cid, fragment string) (uri string)
	Test(uri string) bool
}

const fragment = "(?:#(_:c14n\\d+))?"

var testFragment = regexp.MustCompile("^_:c14n\\d+$")

type underlayURI struct{}

var testUlURI = regexp.MustCompile("^ul:([a-zA-Z0-9]{59})" + fragment + "$")

func (*underlayURI) Parse(uri string) (c cid.Cid, fragment string) {
	if match := testUlURI.FindStringSubmatch(uri); match != nil {
		c, _ = cid.Decode(match[1])
		fragment = match[2]
	}
	return
}

func (*underlayURI) String(c cid.Cid, fragment string) (uri string) {
	s, _ := c.StringOfBase(multibase.Base32)
	if fragment != "" {
		return "ul:" + s + "#" + fragment
	}
	return "ul:" + s
}

func (*underlayURI) Test(uri string) bool {
	return testUlURI.MatchString(uri)
}

// UnderlayURI are URIs that use a ul: protocol scheme
var UnderlayURI URI = (*underlayURI)(nil)

type dwebURI struct{}

var testDwebURI = regexp.MustCompile("^dweb:\\/ipfs\\/([a-zA-Z0-9]{59})" + fragment + "$")

func (*dwebURI) Parse(uri string) (c cid.Cid, fragment string) {
	if match := testDwebURI.FindStringSubmatch(uri); match != nil {
		c, _ = cid.Decode(match[1])
		fragment = match[2]
	}
	return
}

func (*dwebURI) String(c cid.Cid, fragment string) (uri string) {
	s, _ := c.StringOfBase(multibase.Base32)
	if fragment != "" {
		return fmt.Sprintf("dweb:/ipfs/%s#%s", s, fragment)
	}
	return fmt.Sprintf("dweb:/ipfs/%s", s)
}

func (*dwebURI) Test(uri string) bool {
	return testDwebURI.MatchString(uri)
}

// DwebURI are URIs that use a dweb: protocol scheme
var DwebURI URI = (*dwebURI)(nil)

type prefixURI string

// NewPrefixURI returns a URI scheme that appends the CID to a fixed
// prefix, like "https://example.com/datasets/"
func NewPrefixURI(prefix string) URI { return prefixURI(prefix) }

func (p prefixURI) Parse(uri string) (c cid.Cid, fragment string) {
	if !strings.HasPrefix(uri, string(p)) {
		return
	}
	u, err := url.Parse(uri)
	if err != nil {
		return
	}
	tag := strings.TrimPrefix(strings.TrimSuffix(uri, "#"+u.Fragment), string(p))
	if c, err = cid.Decode(tag); err != nil {
		return cid.Undef, ""
	}
	if u.Fragment != "" && !testFragment.MatchString(u.Fragment) {
		return cid.Undef, ""
	}
	return c, u.Fragment
}

func (p prefixURI) String(c cid.Cid, fragment string) (uri string) {
	s, _ := c.StringOfBase(multibase.Base32)
	if fragment != "" {
		return string(p) + s + "#" + fragment
	}
	return string(p) + s
}

func (p prefixURI) Test(uri string) bool {
	c, _ := p.Parse(uri)
	return c.Defined()
}
