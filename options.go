package canonize

import (
	"fmt"

	"github.com/piprate/json-gold/ld"

	"github.com/underlay/canonize/types"
	"github.com/underlay/canonize/urdna"
)

// Unbounded disables MaxWorkFactor or MaxDeepIterations
const Unbounded = urdna.Unbounded

// Options configures a single Canonize call
type Options struct {
	// Algorithm is RDFC-1.0, URDNA2015 or URGNA2012
	Algorithm string `json:"algorithm,omitempty" yaml:"algorithm"`

	// InputFormat is empty for a parsed dataset, application/n-quads
	// or application/ld+json
	InputFormat string `json:"inputFormat,omitempty" yaml:"inputFormat,omitempty"`

	// Format is empty to return a dataset or application/n-quads
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// MessageDigestAlgorithm selects sha256, sha384 or sha512 for RDFC-1.0
	MessageDigestAlgorithm string `json:"messageDigestAlgorithm,omitempty" yaml:"messageDigestAlgorithm,omitempty"`

	// HMACKey turns every digest into an HMAC
	HMACKey string `json:"hmacKey,omitempty" yaml:"hmacKey,omitempty"`

	// MaxWorkFactor sets the per node expansion limit to n^MaxWorkFactor
	// for n blank nodes sharing first degree hashes. Zero means 1.
	MaxWorkFactor int `json:"maxWorkFactor,omitempty" yaml:"maxWorkFactor,omitempty"`

	// MaxDeepIterations, when positive, is the number of Hash N-Degree
	// Quads expansions allowed per blank node and overrides MaxWorkFactor.
	// Each node gets exactly MaxDeepIterations expansions; rdf-canonize
	// allows one more.
	MaxDeepIterations int `json:"maxDeepIterations,omitempty" yaml:"maxDeepIterations,omitempty"`

	RejectURDNA2015 bool `json:"rejectURDNA2015,omitempty" yaml:"rejectURDNA2015,omitempty"`

	// Base is the base IRI for JSON-LD input
	Base string `json:"base,omitempty" yaml:"base,omitempty"`

	// CanonicalIDMap, if non-nil, receives the input → canonical blank
	// node labels
	CanonicalIDMap map[string]string `json:"-" yaml:"-"`

	// DocumentLoader resolves remote JSON-LD contexts
	DocumentLoader ld.DocumentLoader `json:"-" yaml:"-"`
}

// Validate checks every option and returns the engine configuration
func (opts *Options) Validate() (urdna.Config, error) {
	config := urdna.Config{
		Algorithm:         opts.Algorithm,
		HMACKey:           []byte(opts.HMACKey),
		MaxDeepIterations: opts.MaxDeepIterations,
		MaxWorkFactor:     opts.MaxWorkFactor,
	}

	switch opts.Algorithm {
	case "":
		return config, &ConfigError{"algorithm", "", ErrMissingAlgorithm}
	case types.URDNA2015:
		if opts.RejectURDNA2015 {
			return config, &ConfigError{"algorithm", opts.Algorithm, ErrURDNA2015Rejected}
		}
	case types.RDFC10, types.URGNA2012:
	default:
		return config, &ConfigError{"algorithm", opts.Algorithm, ErrUnknownAlgorithm}
	}

	switch opts.InputFormat {
	case "", types.Format, types.JSONLDFormat:
	default:
		return config, &ConfigError{"inputFormat", opts.InputFormat, ErrUnknownFormat}
	}

	switch opts.Format {
	case "", types.Format:
	default:
		return config, &ConfigError{"format", opts.Format, ErrUnknownFormat}
	}

	if opts.MessageDigestAlgorithm != "" {
		digest, err := urdna.ParseHashAlgorithm(opts.MessageDigestAlgorithm)
		if err != nil {
			return config, &ConfigError{"messageDigestAlgorithm", opts.MessageDigestAlgorithm, ErrUnsupportedDigest}
		}

		fixed := map[string]urdna.HashAlgorithm{types.URDNA2015: urdna.SHA256, types.URGNA2012: urdna.SHA1}
		if algorithm, has := fixed[opts.Algorithm]; has && digest != algorithm {
			return config, &ConfigError{"messageDigestAlgorithm", opts.MessageDigestAlgorithm, ErrUnsupportedDigest}
		} else if !has && digest == urdna.SHA1 {
			return config, &ConfigError{"messageDigestAlgorithm", opts.MessageDigestAlgorithm, ErrUnsupportedDigest}
		}
		config.HashAlgorithm = digest
	}

	if opts.MaxWorkFactor < Unbounded {
		return config, &ConfigError{"maxWorkFactor", fmt.Sprint(opts.MaxWorkFactor), ErrInvalidLimit}
	} else if opts.MaxDeepIterations < Unbounded {
		return config, &ConfigError{"maxDeepIterations", fmt.Sprint(opts.MaxDeepIterations), ErrInvalidLimit}
	}

	return config, nil
}
