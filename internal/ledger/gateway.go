package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"chainmail/internal/crypto"
	"chainmail/internal/domain"
)

// Wire shapes of the gateway API, shared by client and handler.
type (
	callRequest struct {
		Call domain.Call `json:"call"`
	}
	callResponse struct {
		Result json.RawMessage `json:"result"`
	}
	submitRequest struct {
		Call      domain.Call `json:"call"`
		PubKey    []byte      `json:"pubkey"`
		Signature []byte      `json:"signature"`
	}
	submitResponse struct {
		Receipt domain.Receipt `json:"receipt"`
	}
	eventsResponse struct {
		Events []domain.Event `json:"events"`
	}
	heightResponse struct {
		Height uint64 `json:"height"`
	}
	errorResponse struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
)

// submitDigest is what gets signed: Keccak-256 over the canonical JSON
// encoding of the call.
func submitDigest(call domain.Call) ([32]byte, error) {
	raw, err := json.Marshal(call)
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Keccak256(raw), nil
}

// Gateway talks the wire API against a ledger gateway daemon and signs
// submissions with the wallet key.
type Gateway struct {
	base   string
	signer domain.Signer
	hc     *http.Client
}

// NewGateway returns a Gateway for the daemon at base.
func NewGateway(base string, signer domain.Signer) *Gateway {
	return &Gateway{
		base:   strings.TrimRight(base, "/"),
		signer: signer,
		hc:     http.DefaultClient,
	}
}

// SubmitAndConfirm signs call and submits it, returning the receipt once
// the gateway reports the transaction applied.
func (g *Gateway) SubmitAndConfirm(ctx context.Context, call domain.Call) (domain.Receipt, error) {
	if call.From.IsZero() {
		call.From = g.signer.Address()
	}
	digest, err := submitDigest(call)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("submit %s: %w", call.Method, err)
	}
	sig, err := g.signer.Sign(digest)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("submit %s: sign: %w", call.Method, err)
	}

	var out submitResponse
	req := submitRequest{Call: call, PubKey: g.signer.PublicKey(), Signature: sig}
	if err := g.post(ctx, "/v1/submit", req, &out); err != nil {
		return domain.Receipt{}, fmt.Errorf("submit %s: %w", call.Method, err)
	}
	return out.Receipt, nil
}

// Call performs a free read against current chain state.
func (g *Gateway) Call(ctx context.Context, call domain.Call) (json.RawMessage, error) {
	if call.From.IsZero() {
		call.From = g.signer.Address()
	}
	var out callResponse
	if err := g.post(ctx, "/v1/call", callRequest{Call: call}, &out); err != nil {
		return nil, fmt.Errorf("call %s: %w", call.Method, err)
	}
	return out.Result, nil
}

// QueryEvents returns events on channel within blocks [from, to].
func (g *Gateway) QueryEvents(ctx context.Context, channel domain.Address, from, to uint64) ([]domain.Event, error) {
	q := url.Values{}
	q.Set("channel", channel.String())
	q.Set("from", strconv.FormatUint(from, 10))
	q.Set("to", strconv.FormatUint(to, 10))

	var out eventsResponse
	if err := g.getJSON(ctx, "/v1/events?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("events %s: %w", channel, err)
	}
	return out.Events, nil
}

// BlockHeight returns the current chain head.
func (g *Gateway) BlockHeight(ctx context.Context) (uint64, error) {
	var out heightResponse
	if err := g.getJSON(ctx, "/v1/height", &out); err != nil {
		return 0, fmt.Errorf("height: %w", err)
	}
	return out.Height, nil
}

func (g *Gateway) post(ctx context.Context, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *Gateway) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+path, nil)
	if err != nil {
		return err
	}
	return g.do(req, out)
}

func (g *Gateway) do(req *http.Request, out any) error {
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := g.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var werr errorResponse
		if json.NewDecoder(resp.Body).Decode(&werr) == nil && werr.Code != "" {
			return errOf(werr.Code, werr.Error)
		}
		return fmt.Errorf("gateway %s: %s", req.URL.Path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Compile-time assertion that Gateway implements domain.LedgerClient.
var _ domain.LedgerClient = (*Gateway)(nil)
