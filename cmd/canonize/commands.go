package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cid "github.com/ipfs/go-cid"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"

	canonize "github.com/underlay/canonize"
	"github.com/underlay/canonize/api"
	"github.com/underlay/canonize/nquads"
	"github.com/underlay/canonize/store"
	"github.com/underlay/canonize/types"
)

type cli struct {
	stdin  io.Reader
	stdout io.Writer

	opts        canonize.Options
	optionsFile string
	timeout     time.Duration
	idMap       bool
}

func newRootCommand(stdin io.Reader, stdout io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout}

	cmd := &cobra.Command{
		Use:   "canonize [file]",
		Short: "Canonicalize an RDF dataset",
		Long: "canonize reads N-Quads or JSON-LD from file (or stdin) and writes\n" +
			"its canonical N-Quads serialization.\n",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          c.runCanonize,
	}

	fset := flag.NewFlagSet("", flag.ContinueOnError)
	klog.InitFlags(fset)
	fset.Set("logtostderr", "true")
	cmd.PersistentFlags().AddGoFlagSet(fset)

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.opts.Algorithm, "algorithm", types.Algorithm, "RDFC-1.0, URDNA2015 or URGNA2012")
	flags.StringVar(&c.opts.InputFormat, "input-format", "", "application/n-quads or application/ld+json (default: by file extension)")
	flags.StringVar(&c.opts.MessageDigestAlgorithm, "digest", "", "sha256, sha384 or sha512 (RDFC-1.0 only)")
	flags.StringVar(&c.opts.HMACKey, "hmac-key", "", "key for HMAC digests")
	flags.IntVar(&c.opts.MaxWorkFactor, "max-work-factor", 0, "deep iteration limit exponent (-1 for unbounded)")
	flags.IntVar(&c.opts.MaxDeepIterations, "max-deep-iterations", 0, "deep iterations allowed per blank node (-1 for unbounded)")
	flags.BoolVar(&c.opts.RejectURDNA2015, "reject-urdna2015", false, "refuse the URDNA2015 algorithm name")
	flags.StringVar(&c.opts.Base, "base", "", "base IRI for JSON-LD input")
	flags.StringVar(&c.optionsFile, "options", "", "YAML options file; flags given explicitly take precedence")
	flags.DurationVar(&c.timeout, "timeout", 0, "abort canonicalization after this long")
	cmd.Flags().BoolVar(&c.idMap, "id-map", false, "write the blank node label mapping instead of the dataset")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "id [file]",
			Short: "Print the CID of the canonical dataset",
			Args:  cobra.MaximumNArgs(1),
			RunE:  c.runID,
		},
		&cobra.Command{
			Use:   "put [file]",
			Short: "Canonicalize and store a dataset, printing its CID",
			Args:  cobra.MaximumNArgs(1),
			RunE:  c.runPut,
		},
		&cobra.Command{
			Use:   "get <cid>",
			Short: "Print a stored dataset",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runGet,
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP and websocket API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				config := api.ConfigFromEnv()
				if c.optionsFile != "" {
					config.OptionsFile = c.optionsFile
				}
				return api.ListenAndServe(cmd.Context(), config)
			},
		},
	)

	return cmd
}

// options merges the options file under the flags that were set
func (c *cli) options(cmd *cobra.Command) (canonize.Options, error) {
	if c.optionsFile == "" {
		return c.opts, nil
	}

	loaded, err := canonize.LoadOptions(c.optionsFile)
	if err != nil {
		return c.opts, err
	}

	opts := *loaded
	flags := cmd.Flags()
	for name, apply := range map[string]func(){
		"algorithm":           func() { opts.Algorithm = c.opts.Algorithm },
		"input-format":        func() { opts.InputFormat = c.opts.InputFormat },
		"digest":              func() { opts.MessageDigestAlgorithm = c.opts.MessageDigestAlgorithm },
		"hmac-key":            func() { opts.HMACKey = c.opts.HMACKey },
		"max-work-factor":     func() { opts.MaxWorkFactor = c.opts.MaxWorkFactor },
		"max-deep-iterations": func() { opts.MaxDeepIterations = c.opts.MaxDeepIterations },
		"reject-urdna2015":    func() { opts.RejectURDNA2015 = c.opts.RejectURDNA2015 },
		"base":                func() { opts.Base = c.opts.Base },
	} {
		if flags.Changed(name) {
			apply()
		}
	}
	return opts, nil
}

func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// read returns the input document and its format
func (c *cli) read(args []string, opts canonize.Options) (string, string, error) {
	reader, format := c.stdin, types.Format
	if len(args) > 0 && args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return "", "", err
		}
		defer file.Close()
		reader = file

		switch strings.ToLower(filepath.Ext(args[0])) {
		case ".jsonld", ".json":
			format = types.JSONLDFormat
		}
	}
	if opts.InputFormat != "" {
		format = opts.InputFormat
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to read input")
	}
	return string(data), format, nil
}

func (c *cli) canonize(cmd *cobra.Command, args []string) (string, map[string]string, error) {
	opts, err := c.options(cmd)
	if err != nil {
		return "", nil, err
	}

	document, format, err := c.read(args, opts)
	if err != nil {
		return "", nil, err
	}

	ctx, cancel := c.context(cmd)
	defer cancel()

	opts.InputFormat, opts.Format = format, types.Format
	opts.CanonicalIDMap = map[string]string{}
	result, err := canonize.Canonize(ctx, document, opts)
	if err != nil {
		return "", nil, err
	}
	return result.(string), opts.CanonicalIDMap, nil
}

func (c *cli) runCanonize(cmd *cobra.Command, args []string) error {
	canonical, idMap, err := c.canonize(cmd, args)
	if err != nil {
		return err
	}
	if c.idMap {
		_, err = io.WriteString(c.stdout, canonize.IDMapString(idMap))
	} else {
		_, err = io.WriteString(c.stdout, canonical)
	}
	return err
}

func (c *cli) runID(cmd *cobra.Command, args []string) error {
	canonical, _, err := c.canonize(cmd, args)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.stdout, store.Identify(canonical).String())
	return err
}

// open connects to the store named by the service environment variables
func (c *cli) open(ctx context.Context) (*api.Service, error) {
	config := api.ConfigFromEnv()
	config.OptionsFile = c.optionsFile
	return api.Open(ctx, config)
}

func (c *cli) runPut(cmd *cobra.Command, args []string) error {
	opts, err := c.options(cmd)
	if err != nil {
		return err
	}

	document, format, err := c.read(args, opts)
	if err != nil {
		return err
	}

	ctx, cancel := c.context(cmd)
	defer cancel()

	service, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer service.Close()

	opts.InputFormat, opts.Format = format, ""
	opts.DocumentLoader = service.Loader
	if _, err := opts.Validate(); err != nil {
		return err
	}
	opts.InputFormat = ""

	var dataset types.Dataset
	if format == types.JSONLDFormat {
		dataset, err = canonize.FromJSONLD(document, &opts)
	} else {
		dataset, err = nquads.ParseString(document)
	}
	if err != nil {
		return err
	}

	service.Store.Config.Options = opts
	id, _, err := service.Store.Put(ctx, dataset)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.stdout, id.String())
	return err
}

func (c *cli) runGet(cmd *cobra.Command, args []string) error {
	id, err := cid.Decode(args[0])
	if err != nil {
		return errors.Wrapf(err, "invalid dataset id %q", args[0])
	}

	ctx, cancel := c.context(cmd)
	defer cancel()

	service, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer service.Close()

	canonical, err := service.Store.GetNQuads(ctx, id)
	if err != nil {
		return err
	}
	_, err = io.WriteString(c.stdout, canonical)
	return err
}
