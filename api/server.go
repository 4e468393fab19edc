// Package api serves canonicalization over HTTP and websocket JSON-RPC
package api

import (
	"context"
	"net/http"
	"os"
	"strings"

	badger "github.com/dgraph-io/badger/v2"
	ipfs "github.com/ipfs/go-ipfs-api"
	ld "github.com/piprate/json-gold/ld"
	"github.com/plan-systems/klog"
	redis "github.com/redis/go-redis/v9"
	cors "github.com/rs/cors"

	canonize "github.com/underlay/canonize"
	"github.com/underlay/canonize/loader"
	"github.com/underlay/canonize/store"
)

// DefaultPort is used when CANONIZE_PORT is unset
const DefaultPort = "8086"

// Config selects the service's backends. Empty fields disable the
// corresponding backend.
type Config struct {
	Port        string
	Path        string // badger directory
	RedisAddr   string
	IPFSHost    string
	OptionsFile string
}

// ConfigFromEnv reads CANONIZE_PORT, CANONIZE_PATH, CANONIZE_OPTIONS,
// REDIS_ADDR and IPFS_HOST
func ConfigFromEnv() Config {
	return Config{
		Port:        os.Getenv("CANONIZE_PORT"),
		Path:        os.Getenv("CANONIZE_PATH"),
		OptionsFile: os.Getenv("CANONIZE_OPTIONS"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		IPFSHost:    os.Getenv("IPFS_HOST"),
	}
}

// Service is an opened Store with its document loader
type Service struct {
	Store  *store.Store
	Loader ld.DocumentLoader
	close  []func() error
}

// Open connects the backends named in config. Redis takes precedence
// over badger; with neither, datasets are kept in memory.
func Open(ctx context.Context, config Config) (*Service, error) {
	service := &Service{}
	storeConfig := &store.Config{}

	if config.OptionsFile != "" {
		opts, err := canonize.LoadOptions(config.OptionsFile)
		if err != nil {
			return nil, err
		}
		storeConfig.Options = *opts
	}

	switch {
	case config.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, err
		}
		service.close = append(service.close, client.Close)
		storeConfig.QuadStore = store.NewRedisStore(client, "")
	case config.Path != "":
		db, err := badger.Open(badger.DefaultOptions(config.Path))
		if err != nil {
			return nil, err
		}
		service.close = append(service.close, db.Close)
		storeConfig.QuadStore = store.NewBadgerStore(db)
	}

	fallback := ld.NewDefaultDocumentLoader(nil)
	if config.IPFSHost != "" {
		sh := ipfs.NewShell(config.IPFSHost)
		storeConfig.Documents = store.NewShellDocumentStore(sh)
		service.Loader = loader.NewShellDocumentLoader(sh, fallback)
	} else {
		service.Loader = fallback
	}

	storeConfig.Options.DocumentLoader = service.Loader
	service.Store = store.NewStore(storeConfig)
	return service, nil
}

// Close releases the backends
func (s *Service) Close() (err error) {
	for _, c := range s.close {
		if e := c(); e != nil && err == nil {
			err = e
		}
	}
	return
}

// Handler returns the HTTP handler: websocket upgrades go to JSON-RPC,
// everything else to the REST API behind CORS.
func (s *Service) Handler() http.Handler {
	api := &httpAPI{store: s.Store, loader: s.Loader}
	handler := cors.New(cors.Options{
		AllowCredentials: false,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"Content-Type", "Accept"},
		ExposedHeaders: []string{"Content-Type", IDHeader, RequestHeader},
		Debug:          false,
	}).Handler(api)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, c := range strings.Split(r.Header.Get("Connection"), ",") {
			if strings.EqualFold(strings.TrimSpace(c), "Upgrade") && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				handleRPC(w, r, api)
				return
			}
		}
		handler.ServeHTTP(w, r)
	})
}

// ListenAndServe serves the API on config.Port until ctx is done
func ListenAndServe(ctx context.Context, config Config) error {
	service, err := Open(ctx, config)
	if err != nil {
		return err
	}
	defer service.Close()

	port := config.Port
	if port == "" {
		port = DefaultPort
	}

	server := &http.Server{Addr: ":" + port, Handler: service.Handler()}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			server.Close()
		case <-done:
		}
	}()

	klog.Infof("canonize: listening on :%s", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
