package leadsync

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Fingerprint prefixes, strongest identity first
const (
	fpEmailPrefix   = "email:"
	fpProfilePrefix = "profile:"
	fpNamePrefix    = "name:"
	fpRawPrefix     = "row:"
)

// maxRawFingerprintLen bounds the low-quality fallback key
const maxRawFingerprintLen = 160

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Candidate holds the identity fields of one external lead row
type Candidate struct {
	Email      string
	ProfileURL string
	FirstName  string
	LastName   string
	Company    string
	Role       string

	// Raw is the full field bag, used only for the fallback key
	Raw map[string]string
}

// Fingerprint derives a stable identity key for a lead row. Priority:
// valid email, then professional profile URL, then a name composite.
// Rows with none of those get a bounded encoding of the whole record,
// which signals that no reliable identity exists; treat it as a
// dedup hint, not a guarantee.
//
// Normalization is idempotent: the same logical entity always yields
// the same key regardless of case or whitespace differences.
func Fingerprint(c Candidate) string {
	if email := normalize(c.Email); email != "" && emailPattern.MatchString(email) {
		return fpEmailPrefix + email
	}

	if profile := normalizeProfileURL(c.ProfileURL); profile != "" {
		return fpProfilePrefix + profile
	}

	first := normalize(c.FirstName)
	last := normalize(c.LastName)
	company := normalize(c.Company)
	role := normalize(c.Role)

	if first != "" || last != "" || company != "" || role != "" {
		return fpNamePrefix + first + "|" + last + "|" + company + "|" + role
	}

	return fpRawPrefix + encodeRaw(c.Raw)
}

// normalize lowercases, trims, and collapses internal whitespace.
// Pipes are stripped so composite keys stay unambiguous.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "|", " ")
	return strings.Join(strings.Fields(s), " ")
}

// normalizeProfileURL canonicalizes a professional social-profile link:
// lowercase, collapse doubled schemes, keep scheme+host+path only,
// strip the trailing slash. Returns "" when the value is not
// recognizable as a profile link.
func normalizeProfileURL(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	// Spreadsheet exports occasionally double the scheme.
	for doubled := true; doubled; {
		switch {
		case strings.HasPrefix(s, "http://http://"), strings.HasPrefix(s, "http://https://"):
			s = strings.TrimPrefix(s, "http://")
		case strings.HasPrefix(s, "https://http://"), strings.HasPrefix(s, "https://https://"):
			s = strings.TrimPrefix(s, "https://")
		default:
			doubled = false
		}
	}

	if !strings.Contains(s, "linkedin.com/") {
		return ""
	}

	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}

	out := u.Scheme + "://" + u.Host + u.Path
	return strings.TrimSuffix(out, "/")
}

// encodeRaw builds a bounded, deterministic encoding of the whole row
func encodeRaw(raw map[string]string) string {
	if len(raw) == 0 {
		return "empty"
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := normalize(raw[k])
		if v == "" {
			continue
		}
		parts = append(parts, normalize(k)+"="+v)
	}

	if len(parts) == 0 {
		return "empty"
	}

	encoded := strings.Join(parts, ";")
	if len(encoded) > maxRawFingerprintLen {
		encoded = encoded[:maxRawFingerprintLen]
	}

	return encoded
}
