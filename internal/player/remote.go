package player

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// logEventTimeout is the hard cap on a /log-event call, per §4.7/§6:
// "fire-and-observe with a hard 5-second timeout; non-2xx and transport
// errors are logged and swallowed".
const logEventTimeout = 5 * time.Second

// decisionRequest is the wire body for POST {base}/decide, grounded on the
// original NetworkPlayer's DecisionRequest DTO.
type decisionRequest struct {
	State      json.RawMessage   `json:"state"`
	Options    []json.RawMessage `json:"options"`
	Reason     json.RawMessage   `json:"reason,omitempty"`
	PlayerUUID string            `json:"playerUuid"`
}

type decisionResponse struct {
	Decision json.RawMessage `json:"decision"`
}

// logEventRequest is the wire body for POST {base}/log-event.
type logEventRequest struct {
	State      json.RawMessage `json:"state"`
	Event      json.RawMessage `json:"event"`
	PlayerUUID string          `json:"playerUuid"`
}

// remoteHTTPPlayer is the Player variant backed by a remote HTTP service,
// carrying a per-session UUID so the remote side can correlate decide and
// log-event calls (§4.7).
type remoteHTTPPlayer struct {
	name       string
	baseURL    string
	sessionID  string
	httpClient *http.Client
	logger     *log.Logger
}

// NewRemoteHTTPPlayer constructs the remote Player variant. No client
// timeout is set on decide calls — the spec explicitly leaves per-game
// deadlines to the engine/player layer (§4.4); the http.Client used here
// only bounds connection setup via its Transport defaults, following the
// same net/http.Client-with-context discipline the teacher's object-storage
// client uses.
func NewRemoteHTTPPlayer(name, baseURL string, logger *log.Logger) Player {
	return &remoteHTTPPlayer{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionID:  uuid.NewString(),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

func (p *remoteHTTPPlayer) Name() string { return p.name }

func (p *remoteHTTPPlayer) Decide(ctx context.Context, state json.RawMessage, options []json.RawMessage, event json.RawMessage) (json.RawMessage, error) {
	reqBody, err := json.Marshal(decisionRequest{
		State:      state,
		Options:    options,
		Reason:     event,
		PlayerUUID: p.sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode decide request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/decide", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("decide request to %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, fmt.Errorf("decide request to %s: status=%d body=%s", p.name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out decisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode decide response from %s: %w", p.name, err)
	}
	return out.Decision, nil
}

func (p *remoteHTTPPlayer) Observe(ctx context.Context, state json.RawMessage, event json.RawMessage) {
	reqBody, err := json.Marshal(logEventRequest{State: state, Event: event, PlayerUUID: p.sessionID})
	if err != nil {
		p.logf("encode log-event: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, logEventTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/log-event", bytes.NewReader(reqBody))
	if err != nil {
		p.logf("build log-event request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logf("log-event request to %s: %v", p.name, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logf("log-event to %s: non-2xx status=%d", p.name, resp.StatusCode)
	}
}

func (p *remoteHTTPPlayer) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}
