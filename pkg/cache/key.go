package cache

import (
	"fmt"
	"strings"
	"time"
)

// KeySeparator delimits logical key segments and the version segment.
const KeySeparator = ":"

// JoinKey builds a deterministic colon-delimited logical key.
// Empty segments are kept so that positional filters stay aligned.
//
// Example:
//
//	JoinKey("clients", 1, 10, "", "active") // "clients:1:10::active"
func JoinKey(parts ...any) string {
	segments := make([]string, len(parts))
	for i, p := range parts {
		switch v := p.(type) {
		case string:
			segments[i] = v
		case nil:
			segments[i] = ""
		default:
			segments[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(segments, KeySeparator)
}

// VersionedKey returns the backend key for a logical key.
// An empty version selects the store's default version.
//
// Example:
//
//	v1:clients:1:10:::::::
func (s *Store) VersionedKey(key, version string) string {
	return s.versionPrefix(version) + key
}

// TagKey returns the backend key of a tag's index set.
func (s *Store) TagKey(tag string) string {
	return s.cfg.TagPrefix + tag
}

func (s *Store) versionPrefix(version string) string {
	if version == "" {
		version = s.cfg.DefaultVersion
	}
	return s.cfg.VersionPrefix + version + KeySeparator
}

// escapeGlob backslash-escapes the characters SCAN MATCH treats as pattern syntax
// so that caller prefixes are matched literally.
func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// prefixPattern returns a SCAN MATCH pattern selecting every key starting with prefix.
func prefixPattern(prefix string) string {
	return escapeGlob(prefix) + "*"
}

// Option customizes a single store call.
type Option func(*options)

type options struct {
	ttl     time.Duration
	tags    []string
	version string
}

// WithTTL sets the entry lifetime. Non-positive values keep the default TTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithTags associates the entry with invalidation tags. Repeated and empty
// tags are dropped; order is preserved.
func WithTags(tags ...string) Option {
	return func(o *options) {
		o.tags = append(o.tags, tags...)
	}
}

// WithVersion scopes the call to a cache epoch other than the default one.
func WithVersion(version string) Option {
	return func(o *options) {
		o.version = version
	}
}

func (s *Store) resolve(opts []Option) (options, error) {
	o := options{ttl: s.cfg.DefaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.version == "" {
		o.version = s.cfg.DefaultVersion
	}
	if err := ValidateVersion(o.version); err != nil {
		return o, err
	}
	o.tags = dedupeTags(o.tags)
	return o, nil
}

func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// subtractTags returns the tags in from that are not in remove.
func subtractTags(from, remove []string) []string {
	if len(from) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(remove))
	for _, t := range remove {
		drop[t] = struct{}{}
	}
	var out []string
	for _, t := range from {
		if _, ok := drop[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}
