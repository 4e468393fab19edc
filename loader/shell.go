// Package loader resolves JSON-LD contexts published on IPFS
package loader

import (
	"net/url"
	"strings"

	cid "github.com/ipfs/go-cid"
	ipfs "github.com/ipfs/go-ipfs-api"
	ld "github.com/piprate/json-gold/ld"
	"github.com/plan-systems/klog"
)

// DefaultShellAddress is the default shell address
const DefaultShellAddress = "localhost:5001"

// Compile-time type check
var _ ld.DocumentLoader = (*ShellDocumentLoader)(nil)

// ShellDocumentLoader is an implementation of ld.DocumentLoader
// for ipfs:// and dweb:/ipfs/ URIs that uses an ipfs.Shell. Other
// schemes go to the fallback loader, if any.
type ShellDocumentLoader struct {
	shell    *ipfs.Shell
	fallback ld.DocumentLoader
}

// NewShellDocumentLoader creates a loader that reads from shell and
// hands other URIs to fallback. A nil shell connects to
// DefaultShellAddress.
func NewShellDocumentLoader(shell *ipfs.Shell, fallback ld.DocumentLoader) *ShellDocumentLoader {
	if shell == nil {
		shell = ipfs.NewShell(DefaultShellAddress)
	}
	return &ShellDocumentLoader{shell: shell, fallback: fallback}
}

// LoadDocument returns a RemoteDocument containing the contents of the
// JSON-LD resource from the given URL.
func (dl *ShellDocumentLoader) LoadDocument(uri string) (*ld.RemoteDocument, error) {
	parsedURL, err := url.Parse(uri)
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}

	switch parsedURL.Scheme {
	case "ipfs":
		return dl.loadDocumentIPFS(uri, parsedURL.Host, parsedURL.Path)
	case "dweb":
		if strings.HasPrefix(parsedURL.Path, "/ipfs/") {
			rest := parsedURL.Path[len("/ipfs/"):]
			origin, path := rest, ""
			if index := strings.Index(rest, "/"); index != -1 {
				origin, path = rest[:index], rest[index:]
			}
			return dl.loadDocumentIPFS(uri, origin, path)
		} else if strings.HasPrefix(parsedURL.Path, "/ipld/") {
			return dl.loadDocumentIPLD(uri, parsedURL.Path[len("/ipld/"):])
		}
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, "Unsupported dweb path: "+parsedURL.Path)
	}

	if dl.fallback != nil {
		return dl.fallback.LoadDocument(uri)
	}
	return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, "Unsupported URI scheme: "+parsedURL.Scheme)
}

func (dl *ShellDocumentLoader) loadDocumentIPLD(uri string, origin string) (*ld.RemoteDocument, error) {
	if c, err := cid.Decode(origin); err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	} else if c.Type() != cid.DagCBOR && c.Type() != cid.DagJSON {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, "Unsupported IPLD CID format: "+origin)
	}

	var document interface{}
	if err := dl.shell.DagGet(origin, &document); err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}
	return &ld.RemoteDocument{DocumentURL: uri, Document: document}, nil
}

func (dl *ShellDocumentLoader) loadDocumentIPFS(uri string, origin string, path string) (*ld.RemoteDocument, error) {
	if _, err := cid.Decode(origin); err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, "Invalid IPFS origin CID: "+origin)
	}

	klog.V(2).Infof("loader: cat %s%s", origin, path)
	result, err := dl.shell.Cat(origin + path)
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}
	defer result.Close()

	document, err := ld.DocumentFromReader(result)
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}
	return &ld.RemoteDocument{DocumentURL: uri, Document: document}, nil
}
