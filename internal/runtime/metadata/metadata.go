// Package metadata holds the string headers that travel with bus messages:
// correlation ids, event types and the render hints the enrichment handler
// turns into a PlanContext.
package metadata

import (
	"maps"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Metadata is a copy of message headers that can be read without touching
// the message itself.
type Metadata map[string]string

// New builds Metadata from alternating key/value pairs. A trailing key
// without a value is dropped.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

// Clone returns a shallow copy. The copy of a nil map is empty, not nil.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	maps.Copy(out, m)
	return out
}

// Merge returns a copy of m overlaid with other; other wins on conflicts.
func (m Metadata) Merge(other Metadata) Metadata {
	out := make(Metadata, len(m)+len(other))
	maps.Copy(out, m)
	maps.Copy(out, other)
	return out
}

// Bool parses key as a boolean, returning fallback when it is absent or
// malformed.
func (m Metadata) Bool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(m[key])
	if err != nil {
		return fallback
	}
	return b
}

// Int parses key as an integer, returning fallback when it is absent or
// malformed.
func (m Metadata) Int(key string, fallback int) int {
	n, err := strconv.Atoi(m[key])
	if err != nil {
		return fallback
	}
	return n
}

// FromWatermill copies watermill headers.
func FromWatermill(md message.Metadata) Metadata {
	out := make(Metadata, len(md))
	maps.Copy(out, md)
	return out
}

// Apply writes every entry onto msg, overwriting existing headers.
func (m Metadata) Apply(msg *message.Message) {
	for k, v := range m {
		msg.Metadata.Set(k, v)
	}
}
