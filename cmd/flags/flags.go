package flags

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/vault-bootstrap/common"
	"github.com/ruteri/vault-bootstrap/controlplane"
	"github.com/ruteri/vault-bootstrap/discovery"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
		Output:  cCtx.App.ErrWriter,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// ControlPlaneAddress returns the base URL of the control plane, resolving
// the SRV record when one is configured.
func ControlPlaneAddress(ctx context.Context, cCtx *cli.Context, logger *slog.Logger) (string, error) {
	scheme := cCtx.String(VaultAPISchemeFlag.Name)

	if record := cCtx.String(VaultSRVRecordFlag.Name); record != "" {
		resolver := discovery.NewResolver(cCtx.String(DNSServerFlag.Name), logger)
		address, err := resolver.ResolveAddress(ctx, record, scheme)
		if err != nil {
			return "", fmt.Errorf("failed to discover control plane: %w", err)
		}
		logger.Info("Discovered control plane", "record", record, "address", address)
		return address, nil
	}

	host := cCtx.String(VaultAPIHostFlag.Name)
	port := cCtx.Int(VaultAPIPortFlag.Name)
	return discovery.Endpoint{Host: host, Port: port}.URL(scheme), nil
}

func ConfigureControlPlane(cCtx *cli.Context, address string) controlplane.Config {
	return controlplane.Config{
		Address:            address,
		Timeout:            cCtx.Duration(RequestTimeoutFlag.Name),
		InsecureSkipVerify: cCtx.Bool(TLSSkipVerifyFlag.Name),
	}
}

var VaultAPIHostFlag = &cli.StringFlag{
	Name:    "vault-api-host",
	Value:   "localhost",
	Usage:   "control plane host",
	EnvVars: []string{"VAULT_API_HOST"},
}
var VaultAPIPortFlag = &cli.IntFlag{
	Name:    "vault-api-port",
	Aliases: []string{"p"},
	Value:   8200,
	Usage:   "control plane port",
	EnvVars: []string{"VAULT_API_PORT"},
}
var VaultAPISchemeFlag = &cli.StringFlag{
	Name:    "vault-api-scheme",
	Value:   "http",
	Usage:   "control plane URL scheme (http or https)",
	EnvVars: []string{"VAULT_API_SCHEME"},
}
var VaultSRVRecordFlag = &cli.StringFlag{
	Name:    "vault-srv-record",
	Usage:   "discover the control plane from this DNS SRV record instead of host and port, e.g. _vault._tcp.example.com",
	EnvVars: []string{"VAULT_SRV_RECORD"},
}
var DNSServerFlag = &cli.StringFlag{
	Name:    "dns-server",
	Value:   discovery.DefaultDNSServer,
	Usage:   "DNS server used for SRV discovery",
	EnvVars: []string{"DNS_SERVER"},
}
var TLSSkipVerifyFlag = &cli.BoolFlag{
	Name:    "tls-skip-verify",
	Value:   false,
	Usage:   "do not verify the control plane TLS certificate",
	EnvVars: []string{"VAULT_SKIP_VERIFY"},
}
var RequestTimeoutFlag = &cli.DurationFlag{
	Name:    "request-timeout",
	Value:   controlplane.DefaultTimeout,
	Usage:   "timeout of a single control plane request",
	EnvVars: []string{"REQUEST_TIMEOUT"},
}

var BootstrapFlag = &cli.BoolFlag{
	Name:    "bootstrap",
	Aliases: []string{"b"},
	Value:   false,
	Usage:   "initialize an empty cluster instead of restoring a snapshot",
	EnvVars: []string{"BOOTSTRAP"},
}
var SnapshotURLFlag = &cli.StringSliceFlag{
	Name:    "snapshot-url",
	Aliases: []string{"s"},
	Usage:   "snapshot location (file://, s3://, ipfs://, http(s)://). Repeat to list mirrors",
	EnvVars: []string{"SNAPSHOT_URL"},
}
var UnsealKeyFlag = &cli.StringFlag{
	Name:    "unseal-key",
	Aliases: []string{"u"},
	Usage:   "unseal key of the restored snapshot",
	EnvVars: []string{"UNSEAL_KEY"},
}
var VaultTokenFlag = &cli.StringFlag{
	Name:    "vault-token",
	Usage:   "token authenticating the snapshot restore on an initialized cluster",
	EnvVars: []string{"VAULT_TOKEN"},
}
var InitOutputFlag = &cli.StringFlag{
	Name:    "init-output",
	Usage:   "write the init result (keys and root token) to this file instead of stdout",
	EnvVars: []string{"INIT_OUTPUT"},
}
var PollIntervalFlag = &cli.DurationFlag{
	Name:    "poll-interval",
	Value:   time.Second,
	Usage:   "delay between liveness probes",
	EnvVars: []string{"POLL_INTERVAL"},
}
var WaitTimeoutFlag = &cli.DurationFlag{
	Name:    "wait-timeout",
	Value:   0,
	Usage:   "give up waiting for the control plane after this long (0 waits forever)",
	EnvVars: []string{"WAIT_TIMEOUT"},
}
var InteractiveFlag = &cli.BoolFlag{
	Name:    "interactive",
	Value:   false,
	Usage:   "prompt for a missing snapshot URL or unseal key when stdin is a terminal",
	EnvVars: []string{"INTERACTIVE"},
}

var LogJsonFlag = &cli.BoolFlag{
	Name:    "log-json",
	Value:   false,
	Usage:   "log in JSON format",
	EnvVars: []string{"LOG_JSON"},
}
var LogDebugFlag = &cli.BoolFlag{
	Name:    "log-debug",
	Value:   false,
	Usage:   "log debug messages",
	EnvVars: []string{"LOG_DEBUG"},
}
var LogUidFlag = &cli.BoolFlag{
	Name:    "log-uid",
	Value:   false,
	Usage:   "generate a uuid and add to all log messages",
	EnvVars: []string{"LOG_UID"},
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-service",
		Value:   service,
		Usage:   "add 'service' tag to logs",
		EnvVars: []string{"LOG_SERVICE"},
	}
}

var ConnectionFlags = []cli.Flag{
	VaultAPIHostFlag,
	VaultAPIPortFlag,
	VaultAPISchemeFlag,
	VaultSRVRecordFlag,
	DNSServerFlag,
	TLSSkipVerifyFlag,
	RequestTimeoutFlag,
	PollIntervalFlag,
	WaitTimeoutFlag,
}

var LifecycleFlags = []cli.Flag{
	BootstrapFlag,
	SnapshotURLFlag,
	UnsealKeyFlag,
	VaultTokenFlag,
	InitOutputFlag,
	InteractiveFlag,
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}
