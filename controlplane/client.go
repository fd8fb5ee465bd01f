package controlplane

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/vault-bootstrap/interfaces"
)

const (
	healthPath = "/v1/sys/health"

	// DefaultTimeout bounds every single control-plane request.
	DefaultTimeout = 60 * time.Second
)

// Config holds the parameters of the outbound control-plane client.
type Config struct {
	// Address is the base URL of the server, e.g. http://127.0.0.1:8200
	Address string

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS verification for https addresses.
	InsecureSkipVerify bool
}

// Client implements interfaces.ControlPlane on top of the Vault API client.
// Retries are disabled: the only retried operation is the liveness probe and
// that loop lives in the caller.
type Client struct {
	api     *api.Client
	address string
	log     *slog.Logger
}

// NewClient creates a control-plane client for the configured address.
func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New("control plane address is empty")
	}
	if log == nil {
		log = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	config := api.DefaultConfig()
	if config.Error != nil {
		return nil, fmt.Errorf("failed to create Vault client config: %w", config.Error)
	}
	config.Address = cfg.Address
	config.MaxRetries = 0
	config.Timeout = timeout
	config.HttpClient = &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify,
			},
		},
		Timeout: timeout,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	// Ignore any VAULT_TOKEN from the environment; calls are unauthenticated
	// unless a token is passed explicitly.
	client.ClearToken()

	return &Client{
		api:     client,
		address: cfg.Address,
		log:     log,
	}, nil
}

// Address returns the base URL of the server.
func (c *Client) Address() string {
	return c.address
}

// Probe issues HEAD /v1/sys/health. Health encodes server state in the
// status code (200, 429, 472, 473, 501, 503), so every response is accepted.
func (c *Client) Probe(ctx context.Context) (int, error) {
	req := c.api.NewRequest(http.MethodHead, healthPath)

	//nolint:staticcheck // the typed Health call issues GET with query overrides
	resp, err := c.api.RawRequestWithContext(ctx, req)
	if resp != nil && resp.Response != nil {
		defer resp.Body.Close()
		c.log.Debug("Health probe answered",
			slog.String("address", c.address),
			slog.Int("status", resp.StatusCode))
		return resp.StatusCode, nil
	}
	if err == nil {
		err = errors.New("empty response")
	}
	return 0, &interfaces.ConnectivityError{Address: c.address, Err: err}
}

// SealStatus fetches GET /v1/sys/seal-status.
func (c *Client) SealStatus(ctx context.Context) (*interfaces.SealStatus, error) {
	resp, err := c.api.Sys().SealStatusWithContext(ctx)
	if err != nil {
		return nil, wrapError("seal-status", err)
	}
	return convertSealStatus(resp), nil
}

// Init submits the init request and returns the generated key material.
func (c *Client) Init(ctx context.Context, req interfaces.InitRequest) (*interfaces.InitResult, error) {
	resp, err := c.api.Sys().InitWithContext(ctx, &api.InitRequest{
		SecretShares:    req.SecretShares,
		SecretThreshold: req.SecretThreshold,
	})
	if err != nil {
		if isAlreadyInitialized(err) {
			return nil, fmt.Errorf("init rejected: %w", interfaces.ErrAlreadyInitialized)
		}
		return nil, wrapError("init", err)
	}

	return &interfaces.InitResult{
		Keys:       resp.Keys,
		KeysBase64: resp.KeysB64,
		RootToken:  resp.RootToken,
	}, nil
}

// Unseal submits a single key share.
func (c *Client) Unseal(ctx context.Context, req interfaces.UnsealRequest) (*interfaces.SealStatus, error) {
	resp, err := c.api.Sys().UnsealWithOptionsWithContext(ctx, &api.UnsealOpts{
		Key:     req.Key,
		Reset:   req.Reset,
		Migrate: req.Migrate,
	})
	if err != nil {
		return nil, wrapError("unseal", err)
	}
	return convertSealStatus(resp), nil
}

// RestoreSnapshot streams the snapshot to /v1/sys/storage/raft/snapshot-force.
// The body is passed through without buffering.
func (c *Client) RestoreSnapshot(ctx context.Context, snapshot *interfaces.Snapshot, token string) error {
	if snapshot == nil || snapshot.ReadCloser == nil {
		return &interfaces.ControlPlaneError{Op: "snapshot-force", Err: errors.New("no snapshot stream")}
	}

	client := c.api
	if token != "" {
		cloned, err := c.api.Clone()
		if err != nil {
			return fmt.Errorf("failed to clone Vault client: %w", err)
		}
		cloned.SetToken(token)
		client = cloned
	}

	start := time.Now()
	if err := client.Sys().RaftSnapshotRestoreWithContext(ctx, snapshot, true); err != nil {
		return wrapError("snapshot-force", err)
	}

	c.log.Debug("Snapshot submitted",
		slog.String("location", snapshot.Location),
		slog.Int64("size", snapshot.Size),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func convertSealStatus(resp *api.SealStatusResponse) *interfaces.SealStatus {
	return &interfaces.SealStatus{
		Type:         resp.Type,
		Initialized:  resp.Initialized,
		Sealed:       resp.Sealed,
		T:            resp.T,
		N:            resp.N,
		Progress:     resp.Progress,
		Nonce:        resp.Nonce,
		Version:      resp.Version,
		BuildDate:    resp.BuildDate,
		Migration:    resp.Migration,
		ClusterName:  resp.ClusterName,
		ClusterID:    resp.ClusterID,
		RecoverySeal: resp.RecoverySeal,
		StorageType:  resp.StorageType,
	}
}

// wrapError converts Vault client errors into ControlPlaneErrors, keeping the
// server's messages verbatim.
func wrapError(op string, err error) error {
	var respErr *api.ResponseError
	if errors.As(err, &respErr) {
		msg := strings.Join(respErr.Errors, "; ")
		if msg == "" {
			msg = "no error message in response"
		}
		return &interfaces.ControlPlaneError{Op: op, StatusCode: respErr.StatusCode, Err: errors.New(msg)}
	}
	return &interfaces.ControlPlaneError{Op: op, Err: err}
}

func isAlreadyInitialized(err error) bool {
	var respErr *api.ResponseError
	if !errors.As(err, &respErr) {
		return false
	}
	for _, msg := range respErr.Errors {
		if strings.Contains(strings.ToLower(msg), "already initialized") {
			return true
		}
	}
	return false
}
