// Package token derives deterministic opaque tokens from a canonical
// subset of an account record's fields.
//
// A token is not a stored secret: it is recomputed on demand and proves
// that the requester holds up-to-date knowledge of the covered fields.
// An emailed confirmation link can therefore be re-validated without
// persisting a token column, and any change to a covered field (including
// the modification timestamp) invalidates outstanding tokens.
package token

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tfmagician/mi-users/internal/common"
	"github.com/tfmagician/mi-users/internal/hashx"
)

// DefaultTTL is the validity window applied when none is configured.
const DefaultTTL = 24 * time.Hour

// Spec controls which fields feed derivation and how long the token is.
type Spec struct {
	// Fields names the record fields fed into derivation. Nil means every
	// schema field of the record type.
	Fields []string
	// Length truncates or extends the token to an exact size; zero keeps
	// the native digest length.
	Length int
}

type Service struct {
	hasher *hashx.Hasher
}

func NewService(hasher *hashx.Hasher) *Service {
	return &Service{hasher: hasher}
}

// Derive computes the token for data restricted to fields. Every named
// field must be present in data; common.ErrMissingField is returned
// otherwise, and the caller is expected to reload the full record and
// retry. Serialization is order-independent: identical field/value pairs
// always produce the same token.
func (s *Service) Derive(data map[string]string, fields []string, length int) (string, error) {
	names := make([]string, len(fields))
	copy(names, fields)
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		value, ok := data[name]
		if !ok {
			return "", common.ErrMissingField
		}
		b.WriteString(strconv.Quote(name))
		b.WriteByte(':')
		b.WriteString(strconv.Quote(value))
		b.WriteByte(';')
	}

	digest := s.hasher.Sum(b.String())
	if length > 0 {
		for len(digest) < length {
			digest += s.hasher.Sum(digest)
		}
		digest = digest[:length]
	}
	return digest, nil
}

// IsExpired reports whether a record last modified at the given time has
// outlived the validity window. A non-positive window falls back to
// DefaultTTL.
func IsExpired(modified time.Time, window time.Duration, now time.Time) bool {
	if window <= 0 {
		window = DefaultTTL
	}
	return now.Sub(modified) > window
}
