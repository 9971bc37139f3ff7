package mlsub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://rec.mlsub.net/api/user"

// defaultUserAgent is what the service expects to see from a browser session.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:108.0) Gecko/20100101 Firefox/108.0"

// API endpoints, relative to the base URL.
const (
	pathLogin      = "/login.php"
	pathGetChannel = "/get-channel.php"
	pathGetEPG     = "/get-epg.php"
	pathSubscribe  = "/addres.php"
	pathUserInfo   = "/userinfo.php"
	pathGetOrder   = "/get-order.php"
)

// statusOK is the envelope-level success code. Unrelated to the HTTP status,
// which the server keeps at 200 even for failures.
const statusOK = 200

// Client wraps the mlsub reservation API. One client holds one logical
// session; the token stored by Login is sent with every subsequent call.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     zerolog.Logger

	mu           sync.Mutex
	username     string
	token        string
	lastEnvelope map[string]any
}

// NewClient creates a new mlsub client. It performs no network traffic; call
// Login before any authenticated operation.
func NewClient(logger zerolog.Logger, opts ...Option) (*Client, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if options.baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(options.baseURL, "/"),
		userAgent:  options.userAgent,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Username returns the name used on the last successful login.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Token returns the current session token, empty before login.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// LoggedIn checks if a session token is present. The token may still have
// expired server-side; authenticated calls surface that as an APIError.
func (c *Client) LoggedIn() bool {
	return c.Token() != ""
}

// LastEnvelope returns the decoded envelope of the most recent call,
// including failed ones. Useful for diagnostics.
func (c *Client) LastEnvelope() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEnvelope
}

// postForm performs a form-encoded POST and returns the body bytes.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	endpoint := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug().Str("path", path).Msg("Making mlsub API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

// decodeEnvelope decodes body bytes into a raw envelope. Numbers are kept as
// json.Number so identifier coercion stays lossless.
func decodeEnvelope(body []byte, msg string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var env map[string]any
	if err := dec.Decode(&env); err != nil {
		return nil, &MalformedResponseError{Context: msg, Err: err}
	}
	return env, nil
}

// checkStatus asserts the envelope-level response_code. It must run before
// any payload key is trusted.
func checkStatus(env map[string]any, msg string) error {
	raw, ok := env["response_code"]
	if !ok {
		return &MalformedResponseError{Context: msg + ": missing response_code"}
	}
	code, ok := coerceInt(raw)
	if !ok {
		return &MalformedResponseError{Context: fmt.Sprintf("%s: bad response_code %v", msg, raw)}
	}
	if code != statusOK {
		info, _ := env["information"].(string)
		return &APIError{Code: int(code), Message: msg, Information: info, Envelope: env}
	}
	return nil
}

// call runs one request/response round trip: POST, decode, status check. The
// envelope is recorded as lastEnvelope even when the status check fails.
func (c *Client) call(ctx context.Context, path string, form url.Values, msg string) (map[string]any, error) {
	body, err := c.postForm(ctx, path, form)
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope(body, msg)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lastEnvelope = env
	c.mu.Unlock()

	if err := checkStatus(env, msg); err != nil {
		return nil, err
	}
	return env, nil
}

// Login authenticates and stores the session token for subsequent calls.
// The raw envelope is returned; it additionally carries the role and an
// informational message.
func (c *Client) Login(ctx context.Context, username, password string) (map[string]any, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	form := url.Values{
		"username": {username},
		"password": {password},
	}
	env, err := c.call(ctx, pathLogin, form, "login failed")
	if err != nil {
		return nil, err
	}

	token, ok := env["onlinetoken"].(string)
	if !ok || token == "" {
		return nil, &EntityError{Entity: "login", Field: "onlinetoken", Value: env["onlinetoken"], Envelope: env}
	}

	c.mu.Lock()
	c.username = username
	c.token = token
	c.mu.Unlock()

	c.logger.Info().Str("username", username).Msg("Logged in to mlsub")
	return env, nil
}

// Channels lists the channels of one network, in upstream order, each tagged
// with the requested network. The returned EPG tokens are short-lived.
func (c *Client) Channels(ctx context.Context, network Network) ([]Channel, error) {
	if !network.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}

	form := url.Values{
		"token":   {c.Token()},
		"network": {string(network)},
	}
	env, err := c.call(ctx, pathGetChannel, form, "failed to list channels")
	if err != nil {
		return nil, err
	}

	rawList, err := listField(env, "channel list", "channels")
	if err != nil {
		return nil, err
	}

	channels := make([]Channel, 0, len(rawList))
	for _, item := range rawList {
		raw, ok := item.(map[string]any)
		if !ok {
			return nil, &EntityError{Entity: "channel", Field: "channels", Value: item, Envelope: env}
		}
		ch, err := mapChannel(raw, network)
		if err != nil {
			return nil, attachEnvelope(err, env)
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// Events fetches the EPG of one channel. tsid is only meaningful on satellite
// networks and is omitted from the request when zero. Placeholder slots are
// filtered out; an empty result is valid. A stale epgtoken surfaces as an
// APIError and is refreshed by calling Channels again.
func (c *Client) Events(ctx context.Context, sid int64, network Network, epgToken string, tsid int64) ([]Event, error) {
	form := url.Values{
		"token":    {c.Token()},
		"sid":      {strconv.FormatInt(sid, 10)},
		"network":  {string(network)},
		"epgtoken": {epgToken},
	}
	if tsid != 0 {
		form.Set("tsid", strconv.FormatInt(tsid, 10))
	}

	env, err := c.call(ctx, pathGetEPG, form, "failed to fetch EPG")
	if err != nil {
		return nil, err
	}

	rawList, err := listField(env, "event list", "events")
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(rawList))
	for _, item := range rawList {
		raw, ok := item.(map[string]any)
		if !ok {
			return nil, &EntityError{Entity: "event", Field: "events", Value: item, Envelope: env}
		}
		if isPlaceholder(raw) {
			continue
		}
		ev, err := mapEvent(raw)
		if err != nil {
			return nil, attachEnvelope(err, env)
		}
		events = append(events, ev)
	}
	return events, nil
}

// ChannelEvents fetches the EPG for a channel returned by Channels.
func (c *Client) ChannelEvents(ctx context.Context, ch Channel) ([]Event, error) {
	var tsid int64
	if ch.TSID != nil {
		tsid = *ch.TSID
	}
	return c.Events(ctx, ch.SID, ch.Network, ch.EPGToken, tsid)
}

// SubscribeRequest identifies the program to reserve. The reserve token must
// be the one returned alongside the target event; it is time-limited.
type SubscribeRequest struct {
	SID          int64
	EID          int64
	TSID         int64
	ONID         int64
	Price        float64
	Network      Network
	ReserveToken string
}

// Subscribe books a program and returns the resulting reservation. Duplicate
// reservations are rejected upstream and surface as an APIError.
func (c *Client) Subscribe(ctx context.Context, req SubscribeRequest) (*Reservation, error) {
	form := url.Values{
		"token":        {c.Token()},
		"sid":          {strconv.FormatInt(req.SID, 10)},
		"eid":          {strconv.FormatInt(req.EID, 10)},
		"tsid":         {strconv.FormatInt(req.TSID, 10)},
		"onid":         {strconv.FormatInt(req.ONID, 10)},
		"price":        {strconv.FormatFloat(req.Price, 'f', -1, 64)},
		"network":      {string(req.Network)},
		"reservetoken": {req.ReserveToken},
	}

	env, err := c.call(ctx, pathSubscribe, form, "reservation failed")
	if err != nil {
		return nil, err
	}

	raw, ok := env["reservation"].(map[string]any)
	if !ok {
		return nil, &EntityError{Entity: "reservation", Field: "reservation", Value: env["reservation"], Envelope: env}
	}
	res, err := mapReservation(raw)
	if err != nil {
		return nil, attachEnvelope(err, env)
	}
	return &res, nil
}

// SubscribeEvent books an event returned by Events.
func (c *Client) SubscribeEvent(ctx context.Context, ev Event) (*Reservation, error) {
	return c.Subscribe(ctx, SubscribeRequest{
		SID:          ev.SID,
		EID:          ev.EID,
		TSID:         ev.TSID,
		ONID:         ev.ONID,
		Price:        ev.Price,
		Network:      ev.Network,
		ReserveToken: ev.ReserveToken,
	})
}

// UserInfo fetches the authenticated account's details.
func (c *Client) UserInfo(ctx context.Context) (*UserInfo, error) {
	form := url.Values{
		"token": {c.Token()},
	}
	env, err := c.call(ctx, pathUserInfo, form, "failed to fetch user info")
	if err != nil {
		return nil, err
	}

	raw, ok := env["userinfo"].(map[string]any)
	if !ok {
		return nil, &EntityError{Entity: "userinfo", Field: "userinfo", Value: env["userinfo"], Envelope: env}
	}
	info, err := mapUserInfo(raw)
	if err != nil {
		return nil, attachEnvelope(err, env)
	}
	return &info, nil
}

// SortOrder is the order listing direction.
type SortOrder string

const (
	// SortAsc sorts orders oldest first
	SortAsc SortOrder = "ASC"
	// SortDesc sorts orders newest first
	SortDesc SortOrder = "DESC"
)

// OrdersQuery selects a page of the reservation order list. The filter fields
// are forwarded to upstream but currently have no effect there.
type OrdersQuery struct {
	Index    int // starting page, 1-based
	Count    int
	Order    SortOrder
	AirDate  string
	Keyword  string
	Username string
	Operator string
}

// Orders lists reservation orders. The envelope is returned as-is: the shape
// of this endpoint is the least stable one, so no typed mapping is attempted.
func (c *Client) Orders(ctx context.Context, q OrdersQuery) (map[string]any, error) {
	if q.Index <= 0 {
		q.Index = 1
	}
	if q.Count <= 0 {
		q.Count = 15
	}
	if q.Order == "" {
		q.Order = SortDesc
	}
	if q.Order != SortAsc && q.Order != SortDesc {
		return nil, fmt.Errorf("invalid sort order %q (must be ASC or DESC)", q.Order)
	}

	form := url.Values{
		"token": {c.Token()},
		"index": {strconv.Itoa(q.Index)},
		"count": {strconv.Itoa(q.Count)},
		"order": {string(q.Order)},
	}
	if q.AirDate != "" {
		form.Set("date", q.AirDate)
	}
	if q.Keyword != "" {
		form.Set("keyword", q.Keyword)
	}
	if q.Username != "" {
		form.Set("username", q.Username)
	}
	if q.Operator != "" {
		form.Set("operator", q.Operator)
	}

	return c.call(ctx, pathGetOrder, form, "failed to list orders")
}

// IsOnline reports whether the session is live according to upstream. API and
// payload-shape failures from the inner user-info call convert to false;
// transport failures are still returned as errors.
func (c *Client) IsOnline(ctx context.Context) (bool, error) {
	info, err := c.UserInfo(ctx)
	if err != nil {
		var apiErr *APIError
		var entityErr *EntityError
		var malformedErr *MalformedResponseError
		if errors.As(err, &apiErr) || errors.As(err, &entityErr) || errors.As(err, &malformedErr) {
			return false, nil
		}
		return false, err
	}
	return info.Online == UserOnline, nil
}

// listField extracts a required array payload key from the envelope.
func listField(env map[string]any, entity, key string) ([]any, error) {
	v, ok := env[key]
	if !ok {
		return nil, &EntityError{Entity: entity, Field: key, Err: fmt.Errorf("missing %s field", key), Envelope: env}
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &EntityError{Entity: entity, Field: key, Value: v, Err: fmt.Errorf("not a list"), Envelope: env}
	}
	return list, nil
}

// attachEnvelope fills in the raw envelope on mapper errors so callers get
// the full response for diagnostics.
func attachEnvelope(err error, env map[string]any) error {
	var entityErr *EntityError
	if errors.As(err, &entityErr) && entityErr.Envelope == nil {
		entityErr.Envelope = env
	}
	return err
}
