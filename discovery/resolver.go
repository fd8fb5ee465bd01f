package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// DefaultDNSServer is the local stub resolver.
const DefaultDNSServer = "127.0.0.53:53"

var ErrNoRecords = errors.New("no SRV records found")

// Endpoint is one control-plane address advertised in DNS.
type Endpoint struct {
	Host     string
	Port     int
	Priority uint16
	Weight   uint16
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL returns the base URL of the endpoint for the given scheme.
func (e Endpoint) URL(scheme string) string {
	return fmt.Sprintf("%s://%s", scheme, e.Address())
}

// Resolver looks up control-plane addresses from DNS SRV records.
type Resolver struct {
	server string
	client *dns.Client
	log    *slog.Logger
}

// NewResolver creates a resolver querying server (host:port).
func NewResolver(server string, log *slog.Logger) *Resolver {
	if server == "" {
		server = DefaultDNSServer
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		server: server,
		client: new(dns.Client),
		log:    log,
	}
}

// ResolveSRV queries the SRV records of name, e.g. _vault._tcp.example.com,
// and returns them ordered by priority, then by descending weight.
func (r *Resolver) ResolveSRV(ctx context.Context, name string) ([]Endpoint, error) {
	m := new(dns.Msg)
	m.Id = dns.Id()
	m.RecursionDesired = true
	m.Question = []dns.Question{{Name: dns.Fqdn(name), Qtype: dns.TypeSRV, Qclass: dns.ClassINET}}

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup of %s via %s failed: %w", name, r.server, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("SRV lookup of %s failed: %s", name, dns.RcodeToString[in.Rcode])
	}

	endpoints := make([]Endpoint, 0, len(in.Answer))
	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			endpoints = append(endpoints, Endpoint{
				Host:     strings.TrimSuffix(srv.Target, "."),
				Port:     int(srv.Port),
				Priority: srv.Priority,
				Weight:   srv.Weight,
			})
		}
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoRecords)
	}

	sort.SliceStable(endpoints, func(i, j int) bool {
		if endpoints[i].Priority != endpoints[j].Priority {
			return endpoints[i].Priority < endpoints[j].Priority
		}
		return endpoints[i].Weight > endpoints[j].Weight
	})

	r.log.Debug("Resolved SRV records",
		slog.String("name", name),
		slog.Int("records", len(endpoints)),
		slog.String("selected", endpoints[0].Address()))

	return endpoints, nil
}

// ResolveAddress returns the base URL of the preferred endpoint of name.
func (r *Resolver) ResolveAddress(ctx context.Context, name, scheme string) (string, error) {
	endpoints, err := r.ResolveSRV(ctx, name)
	if err != nil {
		return "", err
	}
	return endpoints[0].URL(scheme), nil
}
