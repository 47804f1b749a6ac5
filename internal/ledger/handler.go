package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chainmail/internal/crypto"
	"chainmail/internal/domain"
)

// NewHandler exposes backend over the gateway wire API. ledgerd serves a
// Dev instance through it; tests drive a Gateway client against it.
func NewHandler(backend domain.LedgerClient) http.Handler {
	h := &handler{backend: backend}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/call", h.call)
	mux.HandleFunc("POST /v1/submit", h.submit)
	mux.HandleFunc("GET /v1/events", h.events)
	mux.HandleFunc("GET /v1/height", h.height)
	return mux
}

type handler struct {
	backend domain.LedgerClient
}

func (h *handler) call(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var in callRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, r, badRequest("decode call", err))
		return
	}
	result, err := h.backend.Call(r.Context(), in.Call)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, callResponse{Result: result})
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var in submitRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, r, badRequest("decode submit", err))
		return
	}

	digest, err := submitDigest(in.Call)
	if err != nil {
		writeError(w, r, badRequest("digest", err))
		return
	}
	from, err := crypto.AddressFromPublicKey(in.PubKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if from != in.Call.From || !crypto.Verify(in.PubKey, digest, in.Signature) {
		logrus.WithFields(logrus.Fields{
			"request_id": requestID(r),
			"from":       in.Call.From,
			"signer":     from,
		}).Warn("rejecting submit with bad signature")
		writeError(w, r, badRequest("signature does not match sender", nil))
		return
	}

	receipt, err := h.backend.SubmitAndConfirm(r.Context(), in.Call)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"request_id": requestID(r),
		"method":     in.Call.Method,
		"to":         in.Call.To,
		"block":      receipt.Block,
	}).Debug("transaction applied")
	writeJSON(w, submitResponse{Receipt: receipt})
}

func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	channel, err := domain.ParseAddress(q.Get("channel"))
	if err != nil {
		writeError(w, r, badRequest("channel", err))
		return
	}
	from, err := strconv.ParseUint(q.Get("from"), 10, 64)
	if err != nil {
		writeError(w, r, badRequest("from", err))
		return
	}
	to, err := strconv.ParseUint(q.Get("to"), 10, 64)
	if err != nil {
		writeError(w, r, badRequest("to", err))
		return
	}

	events, err := h.backend.QueryEvents(r.Context(), channel, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, eventsResponse{Events: events})
}

func (h *handler) height(w http.ResponseWriter, r *http.Request) {
	height, err := h.backend.BlockHeight(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, heightResponse{Height: height})
}

func badRequest(what string, err error) error {
	if err == nil {
		return &wireError{code: codeBadRequest, msg: what}
	}
	return &wireError{code: codeBadRequest, msg: what + ": " + err.Error()}
}

// wireError carries an explicit wire code past codeOf.
type wireError struct {
	code string
	msg  string
}

func (e *wireError) Error() string { return e.msg }

func statusOf(code string) int {
	switch code {
	case codeBadRequest, codeRangeTooLarge, codeInvalidKey:
		return http.StatusBadRequest
	case codeInsufficientFunds:
		return http.StatusPaymentRequired
	case codeSessionCollision, codeSessionNotExpired, codeSessionAlreadyClosed:
		return http.StatusConflict
	case codeNoSession, codeKeyNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := codeOf(err)
	var werr *wireError
	if errors.As(err, &werr) {
		code = werr.code
	}
	logrus.WithFields(logrus.Fields{
		"request_id": requestID(r),
		"path":       r.URL.Path,
		"code":       code,
	}).WithError(err).Debug("request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusOf(code))
	_ = json.NewEncoder(w).Encode(errorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}
