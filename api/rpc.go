package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	uuid "github.com/google/uuid"
	websocket "github.com/gorilla/websocket"
	cid "github.com/ipfs/go-cid"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	jsonrpc2 "github.com/sourcegraph/jsonrpc2"

	canonize "github.com/underlay/canonize"
	"github.com/underlay/canonize/nquads"
	"github.com/underlay/canonize/store"
)

// JSON-RPC error codes outside the reserved range
const (
	CodeAborted  int64 = -32001
	CodeNotFound int64 = -32004
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return r.URL.Host == ""
	},
	Subprotocols: []string{"rpc"},
}

func handleRPC(w http.ResponseWriter, r *http.Request, api *httpAPI) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		klog.Errorf("rpc: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &jsonObjectStream{conn}
	handler := &rpcHandler{api: api, session: uuid.New().String()}
	klog.V(2).Infof("%s: rpc session opened", handler.session)
	c := jsonrpc2.NewConn(ctx, stream, handler)
	<-c.DisconnectNotify()
	if handler.iter != nil {
		handler.iter.Close()
		handler.iter = nil
	}
	klog.V(2).Infof("%s: rpc session closed", handler.session)
}

type method func(ctx context.Context, params []json.RawMessage, handler *rpcHandler) (interface{}, error)

var methods = map[string]method{
	"canonize": callCanonize,
	"id":       callID,
	"put":      callPut,
	"get":      callGet,
	"delete":   callDelete,
	"list":     callList,
	"next":     callNext,
	"close":    callClose,
}

var errInvalidParams = errors.New("invalid params")
var errNoIterator = errors.New("no open list")

// CanonizeResult is the result of the canonize method
type CanonizeResult struct {
	ID     string            `json:"id"`
	NQuads string            `json:"nquads"`
	IDMap  map[string]string `json:"idMap"`
}

func documentParam(params []json.RawMessage, min, max int) (string, error) {
	if len(params) < min || len(params) > max {
		return "", errInvalidParams
	}
	var document string
	if err := json.Unmarshal(params[0], &document); err != nil {
		return "", errors.Wrap(errInvalidParams, err.Error())
	}
	return document, nil
}

func idParam(params []json.RawMessage) (cid.Cid, error) {
	value, err := documentParam(params, 1, 1)
	if err != nil {
		return cid.Undef, err
	}
	id, err := cid.Decode(value)
	if err != nil {
		return cid.Undef, errors.Wrap(errInvalidParams, err.Error())
	}
	return id, nil
}

// canonize [document, options?]
func callCanonize(ctx context.Context, params []json.RawMessage, handler *rpcHandler) (interface{}, error) {
	document, err := documentParam(params, 1, 2)
	if err != nil {
		return nil, err
	}

	opts := handler.api.store.Config.Options
	if len(params) > 1 {
		if err := json.Unmarshal(params[1], &opts); err != nil {
			return nil, errors.Wrap(errInvalidParams, err.Error())
		}
	}
	opts.DocumentLoader = handler.api.loader
	opts.CanonicalIDMap = map[string]string{}

	canonical, err := canonize.CanonizeNQuads(ctx, document, opts)
	if err != nil {
		return nil, err
	}
	return &CanonizeResult{
		ID:     store.Identify(canonical).String(),
		NQuads: canonical,
		IDMap:  opts.CanonicalIDMap,
	}, nil
}

// id [document]
func callID(ctx context.Context, params []json.RawMessage, handler *rpcHandler) (interface{}, error) {
	document, err := documentParam(params, 1, 1)
	if err != nil {
		return nil, err
	}
	canonical, err := canonize.CanonizeNQuads(ctx, document, handler.api.store.Config.Options)
	if err != nil {
		return nil, err
	}
	return store.Identify(canonical).String(), nil
}

// put [document]
func callPut(ctx context.Context, params []json.RawMessage, handler *rpcHandler) (interface{}, error) {
	document, err := documentParam(params, 1, 1)
	if err != nil {
		return nil, err
	}
	id, _, err := handler.api.store.PutNQuads(ctx, document)
	if err != nil {
		return nil, err
	}
	return id.String(), nil
}

// get [id]
func callGet(ctx context.Context, params []json.RawMessage, handler *rpcHandler) (interface{}, error) {
	id, err := idParam(params)
	if err != nil {
		return nil, err
	}
	return handler.api.store.GetNQuads(ctx, id)
}

// delete [id]
func callDelete(ctx context.Context, params []json.RawMessage, handler *rpcHandler) (interface{}, error) {
	id, err := idParam(params)
	if err != nil {
		return nil, err
	}
	return nil, handler.api.store.Delete(ctx, id)
}

// list [from?] opens an iterator over the stored ids
func callList(ctx context.Context, params []json.RawMessage, handler *rpcHandler) (interface{}, error) {
	from := cid.Undef
	if len(params) > 0 {
		var err error
		if from, err = idParam(params); err != nil {
			return nil, err
		}
	}

	if handler.iter != nil {
		handler.iter.Close()
	}
	handler.iter = handler.api.store.List(ctx, from)
	if err := handler.iter.Err(); err != nil {
		handler.iter.Close()
		handler.iter = nil
		return nil, err
	}
	return nil, nil
}

// next returns the next listed id, or null at the end
func callNext(ctx context.Context, params []json.RawMessage, handler *rpcHandler) (interface{}, error) {
	if handler.iter == nil {
		return nil, errNoIterator
	} else if len(params) > 0 {
		return nil, errInvalidParams
	}

	if id, valid := handler.iter.Next(); valid {
		return id.String(), nil
	}
	return nil, handler.iter.Err()
}

func callClose(ctx context.Context, params []json.RawMessage, handler *rpcHandler) (interface{}, error) {
	if handler.iter == nil {
		return nil, errNoIterator
	} else if len(params) > 0 {
		return nil, errInvalidParams
	}

	handler.iter.Close()
	handler.iter = nil
	return nil, nil
}

type rpcHandler struct {
	api     *httpAPI
	session string
	iter    store.Iterator
}

func codeOf(err error) int64 {
	var configError *canonize.ConfigError
	var parseError *nquads.ParseError
	switch {
	case errors.Is(err, errInvalidParams), errors.As(err, &configError), errors.As(err, &parseError):
		return jsonrpc2.CodeInvalidParams
	case errors.Is(err, errNoIterator):
		return jsonrpc2.CodeInvalidRequest
	case errors.Is(err, canonize.ErrAborted):
		return CodeAborted
	case errors.Is(err, store.ErrNotFound):
		return CodeNotFound
	}
	return jsonrpc2.CodeInternalError
}

func (handler *rpcHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, request *jsonrpc2.Request) {
	method, has := methods[request.Method]
	if !has {
		_ = conn.ReplyWithError(ctx, request.ID, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: "method not found: " + request.Method,
		})
		return
	}

	var result interface{}
	params := make([]json.RawMessage, 0)
	var err error
	if request.Params != nil {
		if err = json.Unmarshal(*request.Params, &params); err != nil {
			err = errors.Wrap(errInvalidParams, err.Error())
		}
	}

	if err == nil {
		result, err = method(ctx, params, handler)
	}

	if err != nil {
		klog.V(2).Infof("%s: %s: %v", handler.session, request.Method, err)
		_ = conn.ReplyWithError(ctx, request.ID, &jsonrpc2.Error{Code: codeOf(err), Message: err.Error()})
	} else {
		_ = conn.Reply(ctx, request.ID, result)
	}
}

type jsonObjectStream struct {
	conn *websocket.Conn
}

func (os *jsonObjectStream) Close() error {
	return os.conn.Close()
}

// WriteObject writes a JSON object to the stream
func (os *jsonObjectStream) WriteObject(obj interface{}) error {
	return os.conn.WriteJSON(obj)
}

// ReadObject reads a JSON object from the stream
func (os *jsonObjectStream) ReadObject(v interface{}) error {
	err := os.conn.ReadJSON(v)
	if err != nil && websocket.IsCloseError(err, 1000, 1001, 1005) {
		return io.EOF
	}
	return err
}
