package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"sweeper/core/types"
	"sweeper/gateway/middleware"
	"sweeper/native/forwarder"
	"sweeper/native/token"
	"sweeper/observability"
	"sweeper/storage/index"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	rateLimitKey    = "rpc"
)

// Backend is the ledger surface the server exposes. *core.Node implements it.
type Backend interface {
	SubmitTransaction(tx *types.Transaction) (*types.Receipt, error)
	ForwarderAddress(factory common.Address, salt *uint256.Int) (common.Address, error)
	Factory(addr common.Address) (*forwarder.Factory, error)
	Forwarder(addr common.Address) (*forwarder.Forwarder, error)
	Balance(addr common.Address) (*big.Int, error)
	TokenBalance(tokenAddr, holder common.Address) (*big.Int, error)
	TokenMetadata(tokenAddr common.Address) (*token.Metadata, error)
	Nonce(addr common.Address) (uint64, error)
}

// CloneLister answers sweep_listForwarders. *index.Index implements it.
type CloneLister interface {
	List(ctx context.Context, factory common.Address, destination *common.Address) ([]index.Record, error)
}

type ServerConfig struct {
	Auth          middleware.AuthConfig
	RateLimit     middleware.RateLimit
	Observability middleware.ObservabilityConfig
	CORS          middleware.CORSConfig
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

type Server struct {
	node    Backend
	clones  CloneLister
	logger  *slog.Logger
	auth    *middleware.Authenticator
	limiter *middleware.RateLimiter
	obs     *middleware.Observability
	cfg     ServerConfig

	serverMu   sync.Mutex
	httpServer *http.Server
}

// NewServer builds a JSON-RPC server over node. clones may be nil, in which
// case sweep_listForwarders reports the index as unavailable.
func NewServer(node Backend, clones CloneLister, cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "rpc"))
	cfg.Auth.AllowAnonymous = true
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	return &Server{
		node:    node,
		clones:  clones,
		logger:  logger,
		auth:    middleware.NewAuthenticator(cfg.Auth, logger),
		limiter: middleware.NewRateLimiter(map[string]middleware.RateLimit{rateLimitKey: cfg.RateLimit}, logger),
		obs:     middleware.NewObservability(cfg.Observability, logger),
		cfg:     cfg,
	}
}

// Handler returns the HTTP routes: JSON-RPC on POST /, /healthz and /metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(s.cfg.CORS))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.obs.MetricsHandler())
	r.Group(func(rr chi.Router) {
		rr.Use(s.obs.Middleware("jsonrpc"))
		rr.Use(s.limiter.Middleware(rateLimitKey))
		rr.Use(s.auth.Middleware())
		rr.Post("/", s.handle)
	})
	return r
}

// Serve accepts connections on listener until Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	srv := &http.Server{
		Handler:           otelhttp.NewHandler(s.Handler(), "sweeper.rpc"),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	s.serverMu.Lock()
	s.httpServer = srv
	s.serverMu.Unlock()
	s.logger.Info("json-rpc server listening", slog.String("address", listener.Addr().String()))
	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops a running server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	srv := s.httpServer
	s.serverMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func writeError(w http.ResponseWriter, status int, id interface{}, rpcErr *RPCError) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	raw, err := json.Marshal(result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, id, &RPCError{Code: codeServerError, Message: "failed to encode result", Data: err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: raw})
}

type methodHandler func(ctx context.Context, params []json.RawMessage) (interface{}, error)

func (s *Server) methods() map[string]methodHandler {
	return map[string]methodHandler{
		"sweep_sendTransaction":     s.sendTransaction,
		"sweep_getForwarderAddress": s.getForwarderAddress,
		"sweep_getFactory":          s.getFactory,
		"sweep_getForwarder":        s.getForwarder,
		"sweep_getBalance":          s.getBalance,
		"sweep_getTokenBalance":     s.getTokenBalance,
		"sweep_getNonce":            s.getNonce,
		"sweep_listForwarders":      s.listForwarders,
	}
}

// handle decodes one JSON-RPC request and routes it to its method.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, &RPCError{Code: codeInvalidRequest, Message: message})
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, &RPCError{Code: codeInvalidRequest, Message: "request body required"})
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, &RPCError{Code: codeParseError, Message: "invalid JSON payload", Data: err.Error()})
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, &RPCError{Code: codeInvalidRequest, Message: "unsupported jsonrpc version", Data: req.JSONRPC})
		return
	}
	handler, ok := s.methods()[req.Method]
	if !ok {
		observability.ModuleMetrics().Observe(req.Method, codeMethodNotFound, time.Since(start))
		writeError(w, http.StatusNotFound, req.ID, &RPCError{Code: codeMethodNotFound, Message: "method not found", Data: req.Method})
		return
	}

	result, err := handler(r.Context(), req.Params)
	if err != nil {
		status, rpcErr := toRPCError(err)
		observability.ModuleMetrics().Observe(req.Method, rpcErr.Code, time.Since(start))
		if rpcErr.Code == codeServerError {
			s.logger.Error("json-rpc method failed",
				slog.String("method", req.Method),
				slog.String("request_id", w.Header().Get(middleware.RequestIDHeader)),
				slog.Any("error", err))
		}
		writeError(w, status, req.ID, rpcErr)
		return
	}
	observability.ModuleMetrics().Observe(req.Method, 0, time.Since(start))
	writeResult(w, req.ID, result)
}
