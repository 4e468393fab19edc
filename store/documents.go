package store

import (
	"io"

	cid "github.com/ipfs/go-cid"
	ipfs "github.com/ipfs/go-ipfs-api"
)

// DocumentStore is a function that turns bytes into CIDs (and probably pins them too)
type DocumentStore = func(reader io.Reader) (cid.Cid, error)

// NewShellDocumentStore adds documents through the IPFS HTTP API. Raw
// leaves and CIDv1 make a single-block document's CID match Identify.
func NewShellDocumentStore(sh *ipfs.Shell) DocumentStore {
	return func(reader io.Reader) (cid.Cid, error) {
		hash, err := sh.Add(reader, ipfs.RawLeaves(true), ipfs.CidVersion(1), ipfs.Pin(true))
		if err != nil {
			return cid.Undef, err
		}
		return cid.Parse(hash)
	}
}
