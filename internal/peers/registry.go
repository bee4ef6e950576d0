package peers

import (
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrInvalidAddress means a peer registration was rejected for a malformed
// address. The registry is left unchanged.
var ErrInvalidAddress = errors.New("invalid peer address")

// Registry is the set of known peer addresses. Registration is idempotent;
// addresses are normalized to host:port form before storage.
type Registry struct {
	mu    sync.RWMutex
	addrs map[string]struct{}
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{addrs: make(map[string]struct{})}
}

// Register adds a peer address and returns its normalized form. Registering
// an address that is already present is a no-op.
func (r *Registry) Register(address string) (string, error) {
	normalized, err := normalize(address)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.addrs[normalized] = struct{}{}
	return normalized, nil
}

// RegisterAll adds a batch of peer addresses, all or none: every address is
// normalized before any is stored, so one malformed address rejects the
// whole batch and leaves the registry unchanged. Returns the normalized
// forms in input order.
func (r *Registry) RegisterAll(addresses []string) ([]string, error) {
	normalized := make([]string, 0, len(addresses))
	for _, address := range addresses {
		n, err := normalize(address)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, n)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range normalized {
		r.addrs[n] = struct{}{}
	}
	return normalized, nil
}

// List returns the registered peer addresses. Sorted for stable output; no
// ordering is guaranteed to callers.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.addrs))
	for addr := range r.addrs {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered peers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.addrs)
}

// normalize accepts "host:port" or an http(s) URL and reduces it to
// host:port
func normalize(address string) (string, error) {
	s := strings.TrimSpace(address)
	if s == "" {
		return "", errors.Wrap(ErrInvalidAddress, "empty address")
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", errors.Wrapf(ErrInvalidAddress, "%q", address)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", errors.Wrapf(ErrInvalidAddress, "unsupported scheme %q", u.Scheme)
		}
		if u.Host == "" {
			return "", errors.Wrapf(ErrInvalidAddress, "%q has no host", address)
		}
		s = u.Host
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil || host == "" {
		return "", errors.Wrapf(ErrInvalidAddress, "%q is not host:port", address)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return "", errors.Wrapf(ErrInvalidAddress, "%q has an invalid port", address)
	}

	return net.JoinHostPort(host, port), nil
}
