package vaulttest

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/vault/shamir"
	"github.com/ruteri/vault-bootstrap/interfaces"
	"go.uber.org/atomic"
)

// Endpoint identifies one of the served control-plane endpoints.
type Endpoint string

const (
	EndpointHealth     Endpoint = "/v1/sys/health"
	EndpointSealStatus Endpoint = "/v1/sys/seal-status"
	EndpointInit       Endpoint = "/v1/sys/init"
	EndpointUnseal     Endpoint = "/v1/sys/unseal"
	EndpointSnapshot   Endpoint = "/v1/sys/storage/raft/snapshot-force"
)

var endpoints = []Endpoint{EndpointHealth, EndpointSealStatus, EndpointInit, EndpointUnseal, EndpointSnapshot}

const keySize = 32

// Server is an in-process fake of the Vault control plane. It keeps a
// keyring, a seal state and a flat key/value data set that snapshots replace.
type Server struct {
	*httptest.Server

	log *slog.Logger

	mu          sync.Mutex
	initialized bool
	sealed      bool
	shares      int
	threshold   int
	rootKey     []byte
	rootToken   string
	submitted   [][]byte
	nonce       string
	data        map[string]string

	dropRemaining atomic.Int64
	dropped       atomic.Int64
	requests      map[Endpoint]*atomic.Int64
}

// Option configures the initial state of a Server.
type Option func(*Server)

// WithInitialized starts the server initialized with a single-share keyring.
// The server stays sealed unless WithUnsealed is also given.
func WithInitialized(key []byte, rootToken string) Option {
	return func(s *Server) {
		s.initialized = true
		s.shares = 1
		s.threshold = 1
		s.rootKey = bytes.Clone(key)
		s.rootToken = rootToken
	}
}

// WithUnsealed starts an initialized server unsealed.
func WithUnsealed() Option {
	return func(s *Server) {
		s.sealed = false
	}
}

// WithData sets the initial data set.
func WithData(data map[string]string) Option {
	return func(s *Server) {
		s.data = maps.Clone(data)
	}
}

// WithDroppedConnections makes the server close the first n connections
// without answering, which clients observe as a transport failure.
func WithDroppedConnections(n int) Option {
	return func(s *Server) {
		s.dropRemaining.Store(int64(n))
	}
}

// WithLogger sets the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// NewServer starts a fake control plane. Close it when done.
func NewServer(opts ...Option) *Server {
	s := &Server{
		sealed:   true,
		data:     map[string]string{},
		requests: make(map[Endpoint]*atomic.Int64, len(endpoints)),
	}
	for _, e := range endpoints {
		s.requests[e] = atomic.NewInt64(0)
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.initialized {
		s.sealed = true
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s.Server = httptest.NewServer(s.dropConnections(s.getRouter()))
	return s
}

func (s *Server) getRouter() http.Handler {
	mux := chi.NewRouter()
	mux.Use(s.httpLogger)

	mux.Head(string(EndpointHealth), s.handleHealth)
	mux.Get(string(EndpointHealth), s.handleHealth)
	mux.Get(string(EndpointSealStatus), s.handleSealStatus)
	mux.Put(string(EndpointInit), s.handleInit)
	mux.Post(string(EndpointInit), s.handleInit)
	mux.Put(string(EndpointUnseal), s.handleUnseal)
	mux.Post(string(EndpointUnseal), s.handleUnseal)
	mux.Put(string(EndpointSnapshot), s.handleSnapshotForce)
	mux.Post(string(EndpointSnapshot), s.handleSnapshotForce)
	return mux
}

func (s *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(s.log, next)
}

func (s *Server) dropConnections(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.dropRemaining.Dec() >= 0 {
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					s.dropped.Inc()
					conn.Close()
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Requests returns the number of requests that reached the endpoint.
// Dropped connections are not counted.
func (s *Server) Requests(e Endpoint) int64 {
	c, ok := s.requests[e]
	if !ok {
		return 0
	}
	return c.Load()
}

// Dropped returns the number of connections closed without an answer.
func (s *Server) Dropped() int64 {
	return s.dropped.Load()
}

// Data returns a copy of the current data set.
func (s *Server) Data() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.data)
}

// RootToken returns the token issued at initialization.
func (s *Server) RootToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootToken
}

// Status returns the current seal status.
func (s *Server) Status() interfaces.SealStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Backup captures the current keyring and data as a snapshot.
func (s *Server) Backup() Backup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Backup{
		UnsealKey: hex.EncodeToString(s.rootKey),
		Data:      maps.Clone(s.data),
	}
}

func (s *Server) statusLocked() interfaces.SealStatus {
	st := interfaces.SealStatus{
		Type:        "shamir",
		Initialized: s.initialized,
		Sealed:      s.sealed,
		T:           s.threshold,
		N:           s.shares,
		Nonce:       s.nonce,
		Version:     "1.19.0",
		StorageType: "raft",
	}
	if s.sealed {
		st.Progress = len(s.submitted)
	}
	if s.initialized && !s.sealed {
		st.ClusterName = "vault-cluster-test"
		st.ClusterID = "00000000-0000-0000-0000-000000000000"
	}
	return st
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.requests[EndpointHealth].Inc()

	s.mu.Lock()
	status := http.StatusOK
	switch {
	case !s.initialized:
		status = http.StatusNotImplemented
	case s.sealed:
		status = http.StatusServiceUnavailable
	}
	st := s.statusLocked()
	s.mu.Unlock()

	writeJSON(w, status, map[string]any{
		"initialized": st.Initialized,
		"sealed":      st.Sealed,
		"standby":     false,
		"version":     st.Version,
	})
}

func (s *Server) handleSealStatus(w http.ResponseWriter, r *http.Request) {
	s.requests[EndpointSealStatus].Inc()
	writeJSON(w, http.StatusOK, s.Status())
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	s.requests[EndpointInit].Inc()

	var req interfaces.InitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrors(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		writeErrors(w, http.StatusBadRequest, "Vault is already initialized")
		return
	}
	if req.SecretShares < 1 || req.SecretThreshold < 1 || req.SecretThreshold > req.SecretShares {
		writeErrors(w, http.StatusBadRequest, fmt.Sprintf("invalid seal configuration: shares=%d threshold=%d", req.SecretShares, req.SecretThreshold))
		return
	}
	if req.SecretShares > 1 && req.SecretThreshold == 1 {
		writeErrors(w, http.StatusBadRequest, "threshold must be greater than one for multiple shares")
		return
	}

	rootKey := make([]byte, keySize)
	if _, err := rand.Read(rootKey); err != nil {
		writeErrors(w, http.StatusInternalServerError, err.Error())
		return
	}

	var shares [][]byte
	if req.SecretShares == 1 {
		shares = [][]byte{rootKey}
	} else {
		var err error
		shares, err = shamir.Split(rootKey, req.SecretShares, req.SecretThreshold)
		if err != nil {
			writeErrors(w, http.StatusInternalServerError, "failed to split root key: "+err.Error())
			return
		}
	}

	s.initialized = true
	s.sealed = true
	s.shares = req.SecretShares
	s.threshold = req.SecretThreshold
	s.rootKey = rootKey
	s.rootToken = "hvs." + uuid.NewString()
	s.submitted = nil
	s.nonce = ""

	resp := interfaces.InitResult{RootToken: s.rootToken}
	for _, share := range shares {
		resp.Keys = append(resp.Keys, hex.EncodeToString(share))
		resp.KeysBase64 = append(resp.KeysBase64, base64.StdEncoding.EncodeToString(share))
	}
	s.log.Info("Initialized", "shares", s.shares, "threshold", s.threshold)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUnseal(w http.ResponseWriter, r *http.Request) {
	s.requests[EndpointUnseal].Inc()

	var req interfaces.UnsealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrors(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		writeErrors(w, http.StatusBadRequest, "Vault is not initialized")
		return
	}
	if req.Reset {
		s.submitted = nil
		s.nonce = ""
	}
	if !s.sealed || req.Key == "" {
		writeJSON(w, http.StatusOK, s.statusLocked())
		return
	}

	share, err := decodeKey(req.Key)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, "'key' must be a valid hex or base64 string")
		return
	}

	if s.nonce == "" {
		s.nonce = uuid.NewString()
	}
	s.submitted = append(s.submitted, share)
	if len(s.submitted) < s.threshold {
		writeJSON(w, http.StatusOK, s.statusLocked())
		return
	}

	combined := s.submitted[0]
	if s.threshold > 1 {
		combined, err = shamir.Combine(s.submitted)
	}
	s.submitted = nil
	s.nonce = ""
	if err != nil || !bytes.Equal(combined, s.rootKey) {
		writeErrors(w, http.StatusBadRequest, "Error unsealing: cipher: message authentication failed")
		return
	}

	s.sealed = false
	s.log.Info("Unsealed")
	writeJSON(w, http.StatusOK, s.statusLocked())
}

func (s *Server) handleSnapshotForce(w http.ResponseWriter, r *http.Request) {
	s.requests[EndpointSnapshot].Inc()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, "failed to read snapshot: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		writeErrors(w, http.StatusBadRequest, "Vault is not initialized")
		return
	}
	// An unsealed server requires the root token. A sealed server accepts the
	// restore since it cannot authenticate requests anyway.
	if !s.sealed && r.Header.Get("X-Vault-Token") != s.rootToken {
		writeErrors(w, http.StatusForbidden, "permission denied")
		return
	}

	var backup Backup
	if err := json.Unmarshal(body, &backup); err != nil {
		writeErrors(w, http.StatusBadRequest, "failed to read snapshot file: "+err.Error())
		return
	}
	key, err := decodeKey(backup.UnsealKey)
	if err != nil || len(key) == 0 {
		writeErrors(w, http.StatusBadRequest, "snapshot does not contain a valid keyring")
		return
	}

	s.rootKey = key
	s.shares = 1
	s.threshold = 1
	s.data = maps.Clone(backup.Data)
	if s.data == nil {
		s.data = map[string]string{}
	}
	s.sealed = true
	s.submitted = nil
	s.nonce = ""

	s.log.Info("Snapshot restored", "entries", len(s.data))
	w.WriteHeader(http.StatusNoContent)
}

func decodeKey(key string) ([]byte, error) {
	if b, err := hex.DecodeString(key); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(key)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, msgs ...string) {
	writeJSON(w, status, map[string][]string{"errors": msgs})
}
