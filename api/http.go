package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	uuid "github.com/google/uuid"
	cid "github.com/ipfs/go-cid"
	ld "github.com/piprate/json-gold/ld"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"

	canonize "github.com/underlay/canonize"
	"github.com/underlay/canonize/nquads"
	"github.com/underlay/canonize/store"
	"github.com/underlay/canonize/types"
)

type httpAPI struct {
	store  *store.Store
	loader ld.DocumentLoader
}

const jsonMime = "application/json"
const nQuadsMime = types.Format
const jsonLdMime = types.JSONLDFormat

// IDHeader carries the CID of the canonical dataset in responses
const IDHeader = "X-Canonical-Id"

// RequestHeader carries the request id used in the service logs
const RequestHeader = "X-Request-Id"

var offers = []string{nQuadsMime, jsonLdMime, jsonMime}

func (api *httpAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	w.Header().Set(RequestHeader, requestID)
	klog.V(2).Infof("%s %s %s", requestID, r.Method, r.URL.RequestURI())

	var err error
	switch r.Method {
	case http.MethodPost:
		err = api.post(w, r)
	case http.MethodPut:
		err = api.put(w, r)
	case http.MethodGet:
		err = api.get(w, r)
	case http.MethodDelete:
		err = api.delete(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err != nil {
		status := statusOf(err)
		if status >= 500 {
			klog.Errorf("%s: %v", requestID, err)
		} else {
			klog.V(2).Infof("%s: %d %v", requestID, status, err)
		}
		http.Error(w, err.Error(), status)
	}
}

// errUnsupportedMediaType rejects request bodies that are neither
// N-Quads nor JSON-LD
var errUnsupportedMediaType = errors.New("unsupported media type")

var errInvalidID = errors.New("invalid dataset id")

func statusOf(err error) int {
	var configError *canonize.ConfigError
	var parseError *nquads.ParseError
	var jsonLdError *ld.JsonLdError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &configError), errors.As(err, &parseError), errors.As(err, &jsonLdError),
		errors.Is(err, errInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, errUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, canonize.ErrAborted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// options overlays the query parameters of r on the store's options
func (api *httpAPI) options(r *http.Request) (canonize.Options, error) {
	opts := api.store.Config.Options
	opts.DocumentLoader = api.loader
	query := r.URL.Query()
	if algorithm := query.Get("algorithm"); algorithm != "" {
		opts.Algorithm = algorithm
	}
	if digest := query.Get("digest"); digest != "" {
		opts.MessageDigestAlgorithm = digest
	}
	for name, limit := range map[string]*int{
		"maxDeepIterations": &opts.MaxDeepIterations,
		"maxWorkFactor":     &opts.MaxWorkFactor,
	} {
		if value := query.Get(name); value != "" {
			n, err := strconv.Atoi(value)
			if err != nil {
				return opts, &canonize.ConfigError{Option: name, Value: value, Err: canonize.ErrInvalidLimit}
			}
			*limit = n
		}
	}
	return opts, nil
}

// timeout applies the ?timeout= duration to the request context
func timeout(r *http.Request) (context.Context, context.CancelFunc, error) {
	value := r.URL.Query().Get("timeout")
	if value == "" {
		return r.Context(), func() {}, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return nil, nil, &canonize.ConfigError{Option: "timeout", Value: value, Err: err}
	}
	ctx, cancel := context.WithTimeout(r.Context(), d)
	return ctx, cancel, nil
}

// MaxBodyBytes bounds the request bodies read by POST and PUT
var MaxBodyBytes int64 = 32 << 20

// readDataset parses the request body according to its Content-Type
func readDataset(w http.ResponseWriter, r *http.Request, opts *canonize.Options) (types.Dataset, error) {
	contentType := nQuadsMime
	if header := r.Header.Get("Content-Type"); header != "" {
		mediaType, _, err := mime.ParseMediaType(header)
		if err != nil {
			return nil, errors.Wrap(errUnsupportedMediaType, header)
		}
		contentType = mediaType
	}

	switch contentType {
	case nQuadsMime, "text/plain", jsonLdMime, jsonMime:
	default:
		return nil, errors.Wrap(errUnsupportedMediaType, contentType)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return nil, err
	}

	if contentType == jsonLdMime || contentType == jsonMime {
		return canonize.FromJSONLD(body, opts)
	}
	return nquads.Parse(bytes.NewReader(body))
}

// POST canonicalizes the body without storing it
func (api *httpAPI) post(w http.ResponseWriter, r *http.Request) error {
	opts, err := api.options(r)
	if err != nil {
		return err
	}
	if _, err := opts.Validate(); err != nil {
		return err
	}

	ctx, cancel, err := timeout(r)
	if err != nil {
		return err
	}
	defer cancel()

	dataset, err := readDataset(w, r, &opts)
	if err != nil {
		return err
	}

	result, err := canonize.CanonizeDataset(ctx, dataset, opts)
	if err != nil {
		return err
	}

	return write(w, r, store.Identify(result.NQuads), result.Quads, result.NQuads, http.StatusOK)
}

// PUT canonicalizes and stores the body
func (api *httpAPI) put(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel, err := timeout(r)
	if err != nil {
		return err
	}
	defer cancel()

	opts := api.store.Config.Options
	opts.DocumentLoader = api.loader
	dataset, err := readDataset(w, r, &opts)
	if err != nil {
		return err
	}

	id, _, err := api.store.Put(ctx, dataset)
	if err != nil {
		return err
	}

	w.Header().Set(IDHeader, id.String())
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func parseID(r *http.Request) (cid.Cid, error) {
	id, err := cid.Decode(r.URL.RawQuery)
	if err != nil {
		return cid.Undef, errors.Wrapf(errInvalidID, "%q", r.URL.RawQuery)
	}
	return id, nil
}

// GET /?<id> reads a dataset back; GET / lists the stored ids
func (api *httpAPI) get(w http.ResponseWriter, r *http.Request) error {
	if r.URL.RawQuery == "" {
		iter := api.store.List(r.Context(), cid.Undef)
		defer iter.Close()
		if err := iter.Err(); err != nil {
			return err
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		for id, valid := iter.Next(); valid; id, valid = iter.Next() {
			fmt.Fprintln(w, id.String())
		}
		return nil
	}

	id, err := parseID(r)
	if err != nil {
		return err
	}

	canonical, err := api.store.GetNQuads(r.Context(), id)
	if err != nil {
		return err
	}

	dataset, err := nquads.ParseString(canonical)
	if err != nil {
		return err
	}

	return write(w, r, id, dataset, canonical, http.StatusOK)
}

// DELETE /?<id> removes a dataset
func (api *httpAPI) delete(w http.ResponseWriter, r *http.Request) error {
	id, err := parseID(r)
	if err != nil {
		return err
	}
	if err := api.store.Delete(r.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// write renders a canonical dataset in the format the client accepts
func write(w http.ResponseWriter, r *http.Request, id cid.Cid, dataset types.Dataset, canonical string, status int) error {
	contentType := negotiate(r.Header.Get("Accept"), offers, nQuadsMime)

	var body []byte
	switch contentType {
	case jsonLdMime:
		doc, err := canonize.ToJSONLD(dataset, "")
		if err != nil {
			return err
		}
		if body, err = json.Marshal(doc); err != nil {
			return err
		}
	case jsonMime:
		var err error
		if body, err = json.Marshal(dataset); err != nil {
			return err
		}
	default:
		body = []byte(canonical)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set(IDHeader, id.String())
	w.WriteHeader(status)
	w.Write(body)
	return nil
}
