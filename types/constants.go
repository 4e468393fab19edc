package types

// RDFC10 is the W3C RDF Dataset Canonicalization algorithm
const RDFC10 = "RDFC-1.0"

// URDNA2015 is the name RDFC-1.0 was published under before standardization
const URDNA2015 = "URDNA2015"

// URGNA2012 is the legacy sha1-based graph normalization algorithm
const URGNA2012 = "URGNA2012"

// Algorithm is the default canonicalization algorithm
const Algorithm = RDFC10

// Format is the canonical text format
const Format = "application/n-quads"

// JSONLDFormat selects JSON-LD input
const JSONLDFormat = "application/ld+json"

// CanonicalPrefix is the label prefix of canonical blank node identifiers
const CanonicalPrefix = "c14n"

// TemporaryPrefix is the label prefix of speculative blank node identifiers
const TemporaryPrefix = "b"

// DefaultGraphName is the JSON-LD name of the default graph
const DefaultGraphName = "@default"

// RDFNS is the RDF vocabulary namespace
const RDFNS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

// RDFLangString is the datatype of language-tagged literals
const RDFLangString = RDFNS + "langString"

// XSDString is the datatype of plain literals
const XSDString = "http://www.w3.org/2001/XMLSchema#string"

// DatasetPrefix keys track the CIDs of the datasets in a store
const DatasetPrefix = byte('<')
