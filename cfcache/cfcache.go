// Package cfcache implements the compact-frame template cache (spec
// §4.F, CI=0x79): a signature-keyed LRU of record templates learned from
// full frames (CI=0x72), used to materialize compact payloads without
// re-parsing their DIB/VIB chains.
package cfcache

import (
	"container/list"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/jfabienke/mbuscrate/mbuserr"
	"github.com/jfabienke/mbuscrate/record"
)

// DefaultCapacity is the default number of signatures retained before LRU
// eviction begins (spec §3).
const DefaultCapacity = 1024

// Template is the learned shape of one record: its DIB/VIB header and the
// byte width of the value that follows in a compact payload.
type Template struct {
	DIB   record.DIB
	VIB   record.VIB
	Width int
}

// entry is the in-memory cache row for one signature.
type entry struct {
	sig       uint16
	templates []Template
	lastUsed  time.Time
	hits      uint64
}

// Config bounds the cache (teacher-idiom defaulting struct, spec §1
// ambient conventions).
type Config struct {
	Capacity int
}

func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	return c
}

// Cache is a signature-keyed LRU of compact-frame templates. The zero
// value is not usable; construct with New. Safe for concurrent use: every
// exported method takes the mutex only for its own update window, never
// across I/O (spec §5).
type Cache struct {
	mu    sync.Mutex
	cfg   Config
	byKey map[uint16]*list.Element
	order *list.List // front = most recently used
	now   func() time.Time
}

// New constructs an empty cache.
func New(cfg Config) *Cache {
	cfg = cfg.withDefaults()
	return &Cache{
		cfg:   cfg,
		byKey: make(map[uint16]*list.Element, cfg.Capacity),
		order: list.New(),
		now:   time.Now,
	}
}

// Learn stores or refreshes the template set for signature, evicting the
// least-recently-touched entry if capacity is exceeded (spec §4.F, §8).
func (c *Cache) Learn(signature uint16, templates []Template) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byKey[signature]; ok {
		e := el.Value.(*entry)
		e.templates = templates
		e.lastUsed = c.now()
		c.order.MoveToFront(el)
		return
	}

	e := &entry{sig: signature, templates: templates, lastUsed: c.now()}
	el := c.order.PushFront(e)
	c.byKey[signature] = el

	for c.order.Len() > c.cfg.Capacity {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.order.Remove(back)
		delete(c.byKey, back.Value.(*entry).sig)
	}
}

// Decode applies the learned template for signature to a value-only
// compact payload and returns the materialized records. On a cache miss
// it returns mbuserr.CacheMiss (spec §4.F, §7): not a fault, but a signal
// for the caller to issue a CI=0x76 full-frame request.
func (c *Cache) Decode(signature uint16, payload []byte) ([]record.Record, error) {
	c.mu.Lock()
	el, ok := c.byKey[signature]
	if !ok {
		c.mu.Unlock()
		return nil, mbuserr.New("cfcache: decode", mbuserr.CacheMiss)
	}
	e := el.Value.(*entry)
	templates := append([]Template(nil), e.templates...)
	e.lastUsed = c.now()
	e.hits++
	c.order.MoveToFront(el)
	c.mu.Unlock()

	out, err := materialize(templates, payload)
	if err != nil && mbuserr.Is(err, mbuserr.TemplateMismatch) {
		c.evict(signature)
	}
	return out, err
}

// evict drops signature from the cache outright (spec §4.F: a
// TemplateMismatch means the learned template no longer describes what the
// slave is sending, so the stale entry must not satisfy future lookups
// until relearned from a full frame).
func (c *Cache) evict(signature uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.byKey[signature]; ok {
		c.order.Remove(el)
		delete(c.byKey, signature)
	}
}

func materialize(templates []Template, payload []byte) ([]record.Record, error) {
	var out []record.Record
	off := 0
	for _, tmpl := range templates {
		if off+tmpl.Width > len(payload) {
			return nil, mbuserr.New("cfcache: materialize", mbuserr.TemplateMismatch)
		}
		data := payload[off : off+tmpl.Width]
		off += tmpl.Width
		// The template was learned from a full frame's own DIB/VIB; only
		// the value bytes vary, so normalization reuses the record
		// package's exported VIF-table lookup directly rather than
		// re-parsing a synthetic chain.
		value, err := record.Normalize(tmpl.DIB, tmpl.VIB, data)
		if err != nil {
			return nil, mbuserr.Wrap("cfcache: materialize", mbuserr.TemplateMismatch, err)
		}
		out = append(out, record.Record{DIB: tmpl.DIB, VIB: tmpl.VIB, Value: value})
	}
	if off != len(payload) {
		return nil, mbuserr.New("cfcache: materialize", mbuserr.TemplateMismatch)
	}
	return out, nil
}

// persistedEntry is the JSON wire shape of one cache row (spec §6): hex
// signature, template list, last-used timestamp in epoch milliseconds,
// hit count.
type persistedEntry struct {
	Sig        string     `json:"sig"`
	Templates  []Template `json:"templates"`
	LastUsedMs int64      `json:"last_used_ms"`
	Hits       uint64     `json:"hits"`
}

type persistedDoc struct {
	Entries []persistedEntry `json:"entries"`
}

// Save serializes the cache as JSON (spec §6). Unknown extra fields in a
// previously-loaded document are not preserved by this minimal writer;
// the schema is closed to the fields named in spec §6.
func (c *Cache) Save(w io.Writer) error {
	c.mu.Lock()
	doc := persistedDoc{}
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		doc.Entries = append(doc.Entries, persistedEntry{
			Sig:        hex4(e.sig),
			Templates:  e.templates,
			LastUsedMs: e.lastUsed.UnixMilli(),
			Hits:       e.hits,
		})
	}
	c.mu.Unlock()

	enc := json.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return mbuserr.Wrap("cfcache: save", mbuserr.InvalidEncoding, err)
	}
	return nil
}

// Load replaces the cache contents from a previously-Saved JSON document,
// rebuilding LRU order from the document's entry order (front = most
// recently used, matching Save's emission order).
func (c *Cache) Load(r io.Reader) error {
	var doc persistedDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return mbuserr.Wrap("cfcache: load", mbuserr.InvalidEncoding, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey = make(map[uint16]*list.Element, c.cfg.Capacity)
	c.order = list.New()
	for _, pe := range doc.Entries {
		sig, err := parseHex4(pe.Sig)
		if err != nil {
			return mbuserr.Wrap("cfcache: load", mbuserr.InvalidEncoding, err)
		}
		e := &entry{
			sig:       sig,
			templates: pe.Templates,
			lastUsed:  time.UnixMilli(pe.LastUsedMs),
			hits:      pe.Hits,
		}
		el := c.order.PushBack(e)
		c.byKey[sig] = el
	}
	return nil
}

func hex4(v uint16) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{
		digits[(v>>12)&0xF], digits[(v>>8)&0xF], digits[(v>>4)&0xF], digits[v&0xF],
	})
}

func parseHex4(s string) (uint16, error) {
	if len(s) != 4 {
		return 0, mbuserr.New("cfcache: parse signature", mbuserr.InvalidEncoding)
	}
	var v uint16
	for _, c := range []byte(s) {
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		default:
			return 0, mbuserr.New("cfcache: parse signature", mbuserr.InvalidEncoding)
		}
		v = v<<4 | uint16(d)
	}
	return v, nil
}

// Len reports the number of signatures currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
