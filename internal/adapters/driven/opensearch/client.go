package opensearch

import (
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	osclient "github.com/opensearch-project/opensearch-go/v2"
)

// Config holds OpenSearch connection configuration.
type Config struct {
	// Addresses is a comma-separated list of endpoints
	Addresses string

	Username string
	Password string

	// InsecureSkipTLSVerify disables certificate verification, for clusters
	// behind self-signed certs
	InsecureSkipTLSVerify bool

	// ResponseTimeout bounds each request's response header wait
	ResponseTimeout time.Duration

	// MaxRetries caps transport-level retries on retriable statuses
	MaxRetries int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(addresses string) Config {
	return Config{
		Addresses:       addresses,
		ResponseTimeout: 120 * time.Second,
		MaxRetries:      3,
	}
}

// NewClient creates an OpenSearch client for the provider.
func NewClient(cfg Config) (*osclient.Client, error) {
	transport := &http.Transport{
		ResponseHeaderTimeout: cfg.ResponseTimeout,
		MaxIdleConnsPerHost:   128,
	}
	if cfg.InsecureSkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return osclient.NewClient(osclient.Config{
		Addresses:           strings.Split(cfg.Addresses, ","),
		Username:            cfg.Username,
		Password:            cfg.Password,
		Transport:           transport,
		MaxRetries:          cfg.MaxRetries,
		CompressRequestBody: true,
	})
}
