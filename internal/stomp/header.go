package stomp

// Header keys used by the broker.
const (
	HeaderAcceptVersion  = "accept-version"
	HeaderHost           = "host"
	HeaderLogin          = "login"
	HeaderPasscode       = "passcode"
	HeaderHeartBeat      = "heart-beat"
	HeaderVersion        = "version"
	HeaderSession        = "session"
	HeaderServer         = "server"
	HeaderAck            = "ack"
	HeaderReceipt        = "receipt"
	HeaderReceiptID      = "receipt-id"
	HeaderMessage        = "message"
	HeaderDestination    = "destination"
	HeaderMessageID      = "message-id"
	HeaderContentType    = "content-type"
	HeaderContentLength  = "content-length"
	HeaderTransaction    = "transaction"
	HeaderID             = "id"
	HeaderSubscription   = "subscription"
	HeaderSubscriptionID = "subscription-id"
)

type headerEntry struct {
	key   string
	value string
}

// Header is an ordered map of header lines. Keys are unique, Set on an
// existing key replaces the value in place so serialization order stays
// the order of first insertion.
type Header struct {
	entries []headerEntry
}

// NewHeader builds a header from alternating key/value pairs.
func NewHeader(kv ...string) *Header {
	h := &Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func (h *Header) index(key string) int {
	if h == nil {
		return -1
	}
	for i := range h.entries {
		if h.entries[i].key == key {
			return i
		}
	}
	return -1
}

// Get returns the value of key and whether it was present.
func (h *Header) Get(key string) (string, bool) {
	i := h.index(key)
	if i < 0 {
		return "", false
	}
	return h.entries[i].value, true
}

// Value returns the value of key or the empty string.
func (h *Header) Value(key string) string {
	v, _ := h.Get(key)
	return v
}

// Contains reports whether key is present.
func (h *Header) Contains(key string) bool {
	return h.index(key) >= 0
}

// Set stores value under key, last write wins.
func (h *Header) Set(key, value string) *Header {
	if i := h.index(key); i >= 0 {
		h.entries[i].value = value
		return h
	}
	h.entries = append(h.entries, headerEntry{key: key, value: value})
	return h
}

// Del removes key if present.
func (h *Header) Del(key string) {
	if i := h.index(key); i >= 0 {
		h.entries = append(h.entries[:i], h.entries[i+1:]...)
	}
}

// Len returns the number of header lines.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// Keys returns the keys in serialization order.
func (h *Header) Keys() []string {
	keys := make([]string, 0, h.Len())
	for i := 0; i < h.Len(); i++ {
		keys = append(keys, h.entries[i].key)
	}
	return keys
}

// UserKeys returns the keys, in order, that are not part of filter.
func (h *Header) UserKeys(filter ...string) []string {
	skip := make(map[string]struct{}, len(filter))
	for _, f := range filter {
		skip[f] = struct{}{}
	}
	keys := make([]string, 0, h.Len())
	for _, k := range h.Keys() {
		if _, ok := skip[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// Clone returns an independent copy.
func (h *Header) Clone() *Header {
	c := &Header{}
	if h != nil {
		c.entries = append(make([]headerEntry, 0, len(h.entries)), h.entries...)
	}
	return c
}

// Map returns the headers as a plain map, mostly useful in tests and logs.
func (h *Header) Map() map[string]string {
	m := make(map[string]string, h.Len())
	for i := 0; i < h.Len(); i++ {
		m[h.entries[i].key] = h.entries[i].value
	}
	return m
}
