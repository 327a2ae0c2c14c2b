// Package phone canonicalizes the sender identifiers delivered by the messaging
// gateway into the digit-only key used to address conversations and to match
// tenant rosters.
//
// Raw identifiers arrive in several encodings:
//
//	6281234567890@s.whatsapp.net     domain suffixed
//	6281234567890:12@s.whatsapp.net  device-instance suffixed
//	081234567890, +62 812-3456-7890  local trunk prefix / formatted
//	201234567890123@lid              opaque linked identifier
//
// Linked identifiers are numeric but are not phone numbers. They normalize to
// an Unresolved result whose degraded key ("lid:<digits>") is stable, so the
// conversation can still be addressed while the real number is unknown.
package phone

import (
	"strings"
)

// OpaquePrefix is the marker carried by degraded keys of unresolved identifiers.
const OpaquePrefix = "lid:"

// Result is the outcome of normalizing one raw identifier.
type Result struct {
	// Key is the canonical phone when Resolved, otherwise the degraded key.
	Key      string
	Resolved bool
}

// Rules configures the normalizer. The zero value is not useful; use DefaultRules.
type Rules struct {
	CountryCode string
	MaxDigits   int
	// OpaquePrefixes are leading digit blocks reserved for linked identifiers.
	// They only apply to values with at least OpaquePrefixMinDigits digits.
	OpaquePrefixes        []string
	OpaquePrefixMinDigits int
	// OpaqueDomains mark the whole identifier as opaque regardless of digits.
	OpaqueDomains []string
	// Overrides maps a cleaned raw identifier (domain and device suffix removed)
	// to the value that should be normalized instead. It may be empty.
	Overrides map[string]string
}

func DefaultRules() Rules {
	return Rules{
		CountryCode:           "62",
		MaxDigits:             15,
		OpaquePrefixes:        []string{"1", "2"},
		OpaquePrefixMinDigits: 14,
		OpaqueDomains:         []string{"lid"},
	}
}

type Normalizer struct {
	rules Rules
}

func NewNormalizer(rules Rules) *Normalizer {
	if rules.CountryCode == "" {
		rules.CountryCode = "62"
	}
	if rules.MaxDigits <= 0 {
		rules.MaxDigits = 15
	}
	if rules.Overrides == nil {
		rules.Overrides = map[string]string{}
	}
	return &Normalizer{rules: rules}
}

// Normalize applies the ordered rules to raw. It is idempotent:
// Normalize(Normalize(x).Key) == Normalize(x).
func (n *Normalizer) Normalize(raw string) Result {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, OpaquePrefix) {
		return n.unresolved(digitsOnly(raw))
	}

	value, domain := stripDomain(raw)
	value = stripDevice(value)

	if target, ok := n.rules.Overrides[value]; ok && target != value {
		// Override targets are normalized without consulting the table again.
		value, domain = stripDomain(target)
		value = stripDevice(value)
	}

	digits := digitsOnly(value)
	if digits == "" {
		return Result{}
	}

	for _, d := range n.rules.OpaqueDomains {
		if strings.EqualFold(domain, d) {
			return n.unresolved(digits)
		}
	}

	digits = n.rewriteTrunk(digits)
	if digits == "" {
		return Result{}
	}

	if n.isOpaque(digits) {
		return n.unresolved(digits)
	}
	return Result{Key: digits, Resolved: true}
}

// Equal reports whether two raw identifiers resolve to the same phone.
// Unresolved identifiers never equal anything, including themselves.
func (n *Normalizer) Equal(a, b string) bool {
	ra, rb := n.Normalize(a), n.Normalize(b)
	return ra.Resolved && rb.Resolved && ra.Key == rb.Key
}

func (n *Normalizer) rewriteTrunk(digits string) string {
	cc := n.rules.CountryCode
	switch {
	case strings.HasPrefix(digits, cc):
		return digits
	case strings.HasPrefix(digits, "00"):
		// International dialing prefix. What follows gets the same rules so
		// the key renormalizes to itself.
		return n.rewriteTrunk(digits[2:])
	case strings.HasPrefix(digits, "0"):
		return cc + strings.TrimLeft(digits, "0")
	case cc == "62" && strings.HasPrefix(digits, "8") && len(digits) >= 9 && len(digits) <= 12:
		// Indonesian mobile numbers typed without trunk or country code.
		return cc + digits
	}
	return digits
}

func (n *Normalizer) isOpaque(digits string) bool {
	if len(digits) > n.rules.MaxDigits {
		return true
	}
	if len(digits) < n.rules.OpaquePrefixMinDigits {
		return false
	}
	for _, p := range n.rules.OpaquePrefixes {
		if strings.HasPrefix(digits, p) {
			return true
		}
	}
	return false
}

func (n *Normalizer) unresolved(digits string) Result {
	if digits == "" {
		return Result{}
	}
	return Result{Key: OpaquePrefix + digits}
}

func stripDomain(v string) (string, string) {
	if i := strings.IndexByte(v, '@'); i >= 0 {
		return v[:i], v[i+1:]
	}
	return v, ""
}

func stripDevice(v string) string {
	i := strings.LastIndexByte(v, ':')
	if i < 0 {
		return v
	}
	suffix := v[i+1:]
	if suffix == "" || digitsOnly(suffix) != suffix {
		return v
	}
	return v[:i]
}

func digitsOnly(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
