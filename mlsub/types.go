package mlsub

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Network identifies a broadcast region or satellite carrier.
type Network string

const (
	// NetworkKanto is the Kanto wide-area terrestrial network
	NetworkKanto Network = "Kanto"
	// NetworkKansai is the Kinki (Kansai) wide-area terrestrial network
	NetworkKansai Network = "Kansai"
	// NetworkNagoya is the Chukyo/Nagoya wide-area terrestrial network
	NetworkNagoya Network = "Nagoya"
	// NetworkHokaido is Hokkaido (upstream spells it without the second k)
	NetworkHokaido Network = "Hokaido"
	// NetworkOther covers the remaining regional terrestrial channels
	NetworkOther Network = "Other"
	// NetworkBS is the BS satellite network
	NetworkBS Network = "BS"
	// NetworkCS is the CS110 satellite network
	NetworkCS Network = "CS"
	// NetworkCS124 is the CS124 satellite network
	NetworkCS124 Network = "CS124"
)

// networkLabels maps each network to its upstream display label.
var networkLabels = map[Network]string{
	NetworkKanto:   "关东广域",
	NetworkKansai:  "近畿（关西）广域",
	NetworkNagoya:  "中京名古屋广域",
	NetworkHokaido: "北海道",
	NetworkOther:   "其他地方频道",
	NetworkBS:      "BS卫星",
	NetworkCS:      "CS110",
	NetworkCS124:   "CS124",
}

// Networks returns all known networks in a stable order.
func Networks() []Network {
	return []Network{
		NetworkKanto, NetworkKansai, NetworkNagoya, NetworkHokaido,
		NetworkOther, NetworkBS, NetworkCS, NetworkCS124,
	}
}

// Label returns the human-readable display label for the network.
func (n Network) Label() string {
	if label, ok := networkLabels[n]; ok {
		return label
	}
	return string(n)
}

// Valid checks if the network is one of the documented values.
func (n Network) Valid() bool {
	_, ok := networkLabels[n]
	return ok
}

// UsesTSID reports whether channels on this network carry a transport-stream
// identifier. Only the satellite networks do.
func (n Network) UsesTSID() bool {
	return n == NetworkBS || n == NetworkCS || n == NetworkCS124
}

// ParseNetwork converts a network name to a Network, case-sensitively, the way
// upstream expects it in request bodies.
func ParseNetwork(s string) (Network, error) {
	n := Network(s)
	if !n.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownNetwork, s)
	}
	return n, nil
}

// Upstream date/time layouts. The EPG start date normally uses slashes but has
// been observed in ISO form as well.
const (
	layoutEventDate    = "2006/01/02"
	layoutEventDateISO = "2006-01-02"
	layoutEventTime    = "15:04:05"
	layoutDateTime     = "2006-01-02 15:04:05"
)

// UserOnline is the sentinel value of UserInfo.Online marking a live session.
const UserOnline = "1"

// Reservation server assignments. Server is a sum of per-server flags; zero
// means the reservation exists in the database but no recording server picked
// it up yet.
const (
	ServerInvalid      = -1
	ServerDatabaseOnly = 0
	ServerRec01        = 1
	ServerRec02        = 2
	ServerRecBackup    = 4
)

// Channel is a single entry of a network's channel list.
type Channel struct {
	Service  string
	SID      int64
	TSID     *int64 // satellite networks only
	EPGToken string // short-lived, refreshed by re-fetching the channel list
	Network  Network
}

// Equal compares two channels by identity. The EPG token is volatile and
// deliberately excluded; an absent TSID only equals an absent TSID.
func (c Channel) Equal(other Channel) bool {
	return c.Service == other.Service &&
		c.SID == other.SID &&
		tsidEqual(c.TSID, other.TSID) &&
		c.Network == other.Network
}

func tsidEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Event is a scheduled program in a channel's EPG.
type Event struct {
	SID          int64
	TSID         int64
	ONID         int64
	EID          int64
	Service      string
	StartDate    time.Time // date component only
	StartTime    time.Time // clock component only
	Timestamp    int64
	Week         string // day-of-week code, 0-6
	WeekText     string // localized day label
	Duration     int64  // minutes
	Name         string
	Text         string
	ExtText      string
	Category     string
	Resolution   string
	Network      Network
	Price        float64
	ReserveToken string // short-lived, tied to this broadcast
}

// Start combines the broadcast date and clock time into a single instant.
func (e Event) Start() time.Time {
	return time.Date(
		e.StartDate.Year(), e.StartDate.Month(), e.StartDate.Day(),
		e.StartTime.Hour(), e.StartTime.Minute(), e.StartTime.Second(),
		0, time.UTC,
	)
}

// Equal compares two events by identity: network, channel and program
// identifiers plus price. Titles and tokens are excluded.
func (e Event) Equal(other Event) bool {
	return e.Network == other.Network &&
		e.SID == other.SID &&
		e.TSID == other.TSID &&
		e.ONID == other.ONID &&
		e.EID == other.EID &&
		e.Price == other.Price
}

// Reservation is the result of a successful booking.
type Reservation struct {
	SID       int64
	EID       int64
	Service   string
	Title     string // not always present
	StartTime time.Time
	Duration  int64 // minutes
	Price     float64
	ResID     int64
	OrderID   int64
	Server    int
}

// Recorded checks if the reservation was accepted into the database.
func (r Reservation) Recorded() bool {
	return r.Server >= ServerDatabaseOnly
}

// Servers returns the names of the recording servers assigned to this
// reservation. Empty for database-only or invalid reservations.
func (r Reservation) Servers() []string {
	if r.Server <= 0 {
		return nil
	}
	var servers []string
	if r.Server&ServerRec01 != 0 {
		servers = append(servers, "REC 01")
	}
	if r.Server&ServerRec02 != 0 {
		servers = append(servers, "REC 02")
	}
	if r.Server&ServerRecBackup != 0 {
		servers = append(servers, "REC BACKUP")
	}
	return servers
}

// UserInfo describes the authenticated account.
type UserInfo struct {
	ID          int64
	Username    string
	Password    string // as returned by upstream; treat as a secret
	Wallet      string // balance, kept verbatim to avoid float precision loss
	Email       string
	ReadNID     *string
	Online      string // session liveness flag, UserOnline when live
	OnlineToken string
	LastIP      *string
	LastTime    *time.Time // absent if the user never logged in before
	TimesDraw   *string    // remaining lottery draws, inconsistent upstream format
}

// mapChannel builds a Channel from one raw channel-list entry, tagging it with
// the network the list was requested for.
func mapChannel(raw map[string]any, network Network) (Channel, error) {
	const entity = "channel"
	ch := Channel{Network: network}

	var err error
	if ch.Service, err = strField(raw, entity, "service"); err != nil {
		return Channel{}, err
	}
	if ch.SID, err = intField(raw, entity, "sid"); err != nil {
		return Channel{}, err
	}
	if ch.TSID, err = optIntField(raw, entity, "tsid"); err != nil {
		return Channel{}, err
	}
	// The EPG token may be missing when upstream is between refreshes.
	token, err := optStrField(raw, entity, "epgtoken")
	if err != nil {
		return Channel{}, err
	}
	if token != nil {
		ch.EPGToken = *token
	}
	return ch, nil
}

// isPlaceholder reports whether a raw EPG entry is a non-program slot, such as
// an off-air gap. Those come back with null or empty name, text or category
// and must be dropped before mapping.
func isPlaceholder(raw map[string]any) bool {
	for _, key := range []string{"event_name", "event_text", "category"} {
		v, ok := raw[key]
		if !ok || v == nil {
			return true
		}
		if s, ok := v.(string); ok && s == "" {
			return true
		}
	}
	return false
}

// mapEvent builds an Event from one raw EPG entry. Callers must filter
// placeholder slots with isPlaceholder first.
func mapEvent(raw map[string]any) (Event, error) {
	const entity = "event"
	var ev Event

	var err error
	if ev.SID, err = intField(raw, entity, "sid"); err != nil {
		return Event{}, err
	}
	if ev.TSID, err = intField(raw, entity, "tsid"); err != nil {
		return Event{}, err
	}
	if ev.ONID, err = intField(raw, entity, "onid"); err != nil {
		return Event{}, err
	}
	if ev.EID, err = intField(raw, entity, "eid"); err != nil {
		return Event{}, err
	}
	if ev.Service, err = strField(raw, entity, "service"); err != nil {
		return Event{}, err
	}

	startDate, err := strField(raw, entity, "startdate")
	if err != nil {
		return Event{}, err
	}
	ev.StartDate, err = time.Parse(layoutEventDate, startDate)
	if err != nil {
		// Upstream occasionally emits ISO dates instead.
		ev.StartDate, err = time.Parse(layoutEventDateISO, startDate)
		if err != nil {
			return Event{}, &EntityError{Entity: entity, Field: "startdate", Value: startDate, Err: err}
		}
	}

	startTime, err := strField(raw, entity, "starttime")
	if err != nil {
		return Event{}, err
	}
	if ev.StartTime, err = time.Parse(layoutEventTime, startTime); err != nil {
		return Event{}, &EntityError{Entity: entity, Field: "starttime", Value: startTime, Err: err}
	}

	if ev.Timestamp, err = intField(raw, entity, "timestamp"); err != nil {
		return Event{}, err
	}
	if ev.Week, err = looseStrField(raw, entity, "week"); err != nil {
		return Event{}, err
	}
	if ev.WeekText, err = strField(raw, entity, "week_text"); err != nil {
		return Event{}, err
	}
	if ev.Duration, err = intField(raw, entity, "duration"); err != nil {
		return Event{}, err
	}
	if ev.Name, err = strField(raw, entity, "event_name"); err != nil {
		return Event{}, err
	}
	if ev.Text, err = strField(raw, entity, "event_text"); err != nil {
		return Event{}, err
	}
	if ev.ExtText, err = strField(raw, entity, "event_ext_text"); err != nil {
		return Event{}, err
	}
	if ev.Category, err = strField(raw, entity, "category"); err != nil {
		return Event{}, err
	}
	if ev.Resolution, err = strField(raw, entity, "resolution"); err != nil {
		return Event{}, err
	}

	network, err := strField(raw, entity, "network")
	if err != nil {
		return Event{}, err
	}
	ev.Network = Network(network)

	if ev.Price, err = floatField(raw, entity, "price"); err != nil {
		return Event{}, err
	}
	if ev.ReserveToken, err = strField(raw, entity, "reservetoken"); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// mapReservation builds a Reservation from the payload of a successful
// booking. Most fields come back as strings, price without a decimal point
// for whole numbers.
func mapReservation(raw map[string]any) (Reservation, error) {
	const entity = "reservation"
	var res Reservation

	var err error
	if res.SID, err = intField(raw, entity, "sid"); err != nil {
		return Reservation{}, err
	}
	if res.EID, err = intField(raw, entity, "eid"); err != nil {
		return Reservation{}, err
	}
	if res.Service, err = strField(raw, entity, "service"); err != nil {
		return Reservation{}, err
	}
	title, err := optStrField(raw, entity, "title")
	if err != nil {
		return Reservation{}, err
	}
	if title != nil {
		res.Title = *title
	}

	startTime, err := strField(raw, entity, "starttime")
	if err != nil {
		return Reservation{}, err
	}
	if res.StartTime, err = time.Parse(layoutDateTime, startTime); err != nil {
		return Reservation{}, &EntityError{Entity: entity, Field: "starttime", Value: startTime, Err: err}
	}

	if res.Duration, err = intField(raw, entity, "duration"); err != nil {
		return Reservation{}, err
	}
	if res.Price, err = floatField(raw, entity, "price"); err != nil {
		return Reservation{}, err
	}
	if res.ResID, err = intField(raw, entity, "resid"); err != nil {
		return Reservation{}, err
	}
	if res.OrderID, err = intField(raw, entity, "orderid"); err != nil {
		return Reservation{}, err
	}

	server, err := intField(raw, entity, "server")
	if err != nil {
		return Reservation{}, err
	}
	res.Server = int(server)
	return res, nil
}

// mapUserInfo builds a UserInfo from the userinfo payload.
func mapUserInfo(raw map[string]any) (UserInfo, error) {
	const entity = "userinfo"
	var info UserInfo

	var err error
	if info.ID, err = intField(raw, entity, "id"); err != nil {
		return UserInfo{}, err
	}
	if info.Username, err = strField(raw, entity, "username"); err != nil {
		return UserInfo{}, err
	}
	if info.Password, err = strField(raw, entity, "password"); err != nil {
		return UserInfo{}, err
	}
	if info.Wallet, err = looseStrField(raw, entity, "wallet"); err != nil {
		return UserInfo{}, err
	}
	if info.Email, err = strField(raw, entity, "email"); err != nil {
		return UserInfo{}, err
	}
	if info.ReadNID, err = optStrField(raw, entity, "readnid"); err != nil {
		return UserInfo{}, err
	}
	if info.Online, err = looseStrField(raw, entity, "online"); err != nil {
		return UserInfo{}, err
	}
	if info.OnlineToken, err = strField(raw, entity, "onlinetoken"); err != nil {
		return UserInfo{}, err
	}
	if info.LastIP, err = optStrField(raw, entity, "lastip"); err != nil {
		return UserInfo{}, err
	}

	lastTime, err := optStrField(raw, entity, "lasttime")
	if err != nil {
		return UserInfo{}, err
	}
	if lastTime != nil {
		t, err := time.Parse(layoutDateTime, *lastTime)
		if err != nil {
			return UserInfo{}, &EntityError{Entity: entity, Field: "lasttime", Value: *lastTime, Err: err}
		}
		info.LastTime = &t
	}

	if info.TimesDraw, err = optStrField(raw, entity, "times_draw"); err != nil {
		return UserInfo{}, err
	}
	return info, nil
}

// coerceInt normalizes the mixed string/number typing upstream uses for
// identifiers. Envelopes are decoded with UseNumber, so JSON numbers arrive
// as json.Number.
func coerceInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

// coerceFloat accepts numeric and string representations of a price.
func coerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func intField(raw map[string]any, entity, key string) (int64, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, &EntityError{Entity: entity, Field: key, Err: fmt.Errorf("missing required field")}
	}
	i, ok := coerceInt(v)
	if !ok {
		return 0, &EntityError{Entity: entity, Field: key, Value: v, Err: fmt.Errorf("not a number")}
	}
	return i, nil
}

func optIntField(raw map[string]any, entity, key string) (*int64, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	i, ok := coerceInt(v)
	if !ok {
		return nil, &EntityError{Entity: entity, Field: key, Value: v, Err: fmt.Errorf("not a number")}
	}
	return &i, nil
}

func floatField(raw map[string]any, entity, key string) (float64, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, &EntityError{Entity: entity, Field: key, Err: fmt.Errorf("missing required field")}
	}
	f, ok := coerceFloat(v)
	if !ok {
		return 0, &EntityError{Entity: entity, Field: key, Value: v, Err: fmt.Errorf("not a number")}
	}
	return f, nil
}

func strField(raw map[string]any, entity, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", &EntityError{Entity: entity, Field: key, Err: fmt.Errorf("missing required field")}
	}
	s, ok := v.(string)
	if !ok {
		return "", &EntityError{Entity: entity, Field: key, Value: v, Err: fmt.Errorf("not a string")}
	}
	return s, nil
}

// looseStrField accepts numbers as well; upstream flips between "0" and 0 for
// some flag fields.
func looseStrField(raw map[string]any, entity, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", &EntityError{Entity: entity, Field: key, Err: fmt.Errorf("missing required field")}
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	}
	return "", &EntityError{Entity: entity, Field: key, Value: v, Err: fmt.Errorf("not a string")}
}

func optStrField(raw map[string]any, entity, key string) (*string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch s := v.(type) {
	case string:
		return &s, nil
	case json.Number:
		str := s.String()
		return &str, nil
	}
	return nil, &EntityError{Entity: entity, Field: key, Value: v, Err: fmt.Errorf("not a string")}
}
