package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/openmed/ledgerd/internal/models"
	"github.com/openmed/ledgerd/pkg/semver"
)

const (
	chainPath = "/api/v1/chain"
	infoPath  = "/api/v1/node/info"
)

// Peer API versions this client can talk to
var compatiblePeerAPIs = []semver.Semver{
	semver.NewSemver(1, 0, 0),
}

// ErrPeerUnreachable means a peer could not be fetched within its timeout.
// The peer is excluded from consensus comparison; nothing else fails.
var ErrPeerUnreachable = errors.New("peer unreachable")

// DefaultFetchTimeout bounds a single peer fetch unless configured otherwise
const DefaultFetchTimeout = 5 * time.Second

// PeerClient fetches chain snapshots from peer nodes over HTTP. Each fetch
// is bounded by its own timeout so one slow peer cannot stall a consensus
// round.
type PeerClient struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewPeerClient creates a PeerClient with the given per-peer fetch timeout
func NewPeerClient(timeout time.Duration) *PeerClient {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &PeerClient{
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

// FetchChain retrieves a peer's full chain. The peer's API version is
// checked first; an incompatible or unreachable peer yields
// ErrPeerUnreachable.
func (p *PeerClient) FetchChain(ctx context.Context, address string) ([]models.Block, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	info, err := p.fetchInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	actual, err := semver.Parse(info.APIVersion)
	if err != nil {
		return nil, errors.Wrapf(ErrPeerUnreachable, "peer %s advertises unparseable API version %q", address, info.APIVersion)
	}
	if !semver.AnyCompatible(compatiblePeerAPIs, actual) {
		return nil, errors.Wrapf(ErrPeerUnreachable, "peer %s API version %s is not compatible", address, actual)
	}

	var snapshot models.ChainSnapshot
	if err := p.getJSON(ctx, address, chainPath, &snapshot); err != nil {
		return nil, err
	}
	if len(snapshot.Chain) != snapshot.Length {
		return nil, errors.Wrapf(ErrPeerUnreachable, "peer %s reported length %d but sent %d blocks", address, snapshot.Length, len(snapshot.Chain))
	}

	return snapshot.Chain, nil
}

func (p *PeerClient) fetchInfo(ctx context.Context, address string) (*models.NodeInfo, error) {
	var info models.NodeInfo
	if err := p.getJSON(ctx, address, infoPath, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (p *PeerClient) getJSON(ctx context.Context, address, path string, out any) error {
	url := fmt.Sprintf("http://%s%s", address, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(ErrPeerUnreachable, "peer %s: %v", address, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(ErrPeerUnreachable, "peer %s: %v", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrPeerUnreachable, "peer %s returned status %d for %s", address, resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(ErrPeerUnreachable, "peer %s sent malformed JSON for %s: %v", address, path, err)
	}
	return nil
}
