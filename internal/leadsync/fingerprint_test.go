package leadsync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_Priority(t *testing.T) {
	tests := []struct {
		name      string
		candidate Candidate
		want      string
	}{
		{
			name: "email wins over everything else",
			candidate: Candidate{
				Email:      "Jane.Doe@Example.com",
				ProfileURL: "https://linkedin.com/in/janedoe",
				FirstName:  "Jane",
				LastName:   "Doe",
			},
			want: "email:jane.doe@example.com",
		},
		{
			name: "profile wins when email is missing",
			candidate: Candidate{
				ProfileURL: "https://www.linkedin.com/in/janedoe/",
				FirstName:  "Jane",
				LastName:   "Doe",
			},
			want: "profile:https://www.linkedin.com/in/janedoe",
		},
		{
			name: "invalid email falls through to profile",
			candidate: Candidate{
				Email:      "not-an-email",
				ProfileURL: "linkedin.com/in/janedoe",
			},
			want: "profile:https://linkedin.com/in/janedoe",
		},
		{
			name: "name composite when no email or profile",
			candidate: Candidate{
				FirstName: "Jane",
				LastName:  "Doe",
				Company:   "Acme Corp",
				Role:      "VP Sales",
			},
			want: "name:jane|doe|acme corp|vp sales",
		},
		{
			name: "partial name still produces a composite",
			candidate: Candidate{
				LastName: "Doe",
			},
			want: "name:|doe||",
		},
		{
			name: "non-linkedin url is not a profile",
			candidate: Candidate{
				ProfileURL: "https://twitter.com/janedoe",
				FirstName:  "Jane",
			},
			want: "name:jane|||",
		},
		{
			name: "empty candidate falls back to raw encoding",
			candidate: Candidate{
				Raw: map[string]string{"notes": "met at conference", "city": "Austin"},
			},
			want: "row:city=austin;notes=met at conference",
		},
		{
			name:      "fully empty row",
			candidate: Candidate{},
			want:      "row:empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fingerprint(tt.candidate))
		})
	}
}

func TestFingerprint_NormalizationIsIdempotent(t *testing.T) {
	variants := []Candidate{
		{Email: "jane.doe@example.com"},
		{Email: "JANE.DOE@EXAMPLE.COM"},
		{Email: "  jane.doe@example.com  "},
	}

	first := Fingerprint(variants[0])
	for _, v := range variants[1:] {
		assert.Equal(t, first, Fingerprint(v))
	}
}

func TestFingerprint_NameCompositeStripsPipes(t *testing.T) {
	fp := Fingerprint(Candidate{
		FirstName: "Jane|Admin",
		LastName:  "Doe",
	})

	// The pipe inside the value must not create a phantom component.
	assert.Equal(t, "name:jane admin|doe||", fp)
}

func TestFingerprint_RawIsBounded(t *testing.T) {
	raw := map[string]string{
		"notes": strings.Repeat("a", 1000),
	}

	fp := Fingerprint(Candidate{Raw: raw})
	assert.LessOrEqual(t, len(fp), len(fpRawPrefix)+maxRawFingerprintLen)
}

func TestFingerprint_RawIsDeterministic(t *testing.T) {
	raw := map[string]string{
		"zeta":  "last",
		"alpha": "first",
		"mid":   "middle",
	}

	fp := Fingerprint(Candidate{Raw: raw})
	for i := 0; i < 10; i++ {
		assert.Equal(t, fp, Fingerprint(Candidate{Raw: raw}))
	}

	// Keys are sorted, not map-ordered.
	assert.Equal(t, "row:alpha=first;mid=middle;zeta=last", fp)
}

func TestNormalizeProfileURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain profile", in: "https://linkedin.com/in/janedoe", want: "https://linkedin.com/in/janedoe"},
		{name: "trailing slash stripped", in: "https://linkedin.com/in/janedoe/", want: "https://linkedin.com/in/janedoe"},
		{name: "query and fragment dropped", in: "https://linkedin.com/in/janedoe?utm=x#top", want: "https://linkedin.com/in/janedoe"},
		{name: "uppercase lowered", in: "HTTPS://LinkedIn.com/in/JaneDoe", want: "https://linkedin.com/in/janedoe"},
		{name: "missing scheme added", in: "linkedin.com/in/janedoe", want: "https://linkedin.com/in/janedoe"},
		{name: "doubled scheme collapsed", in: "https://https://linkedin.com/in/janedoe", want: "https://linkedin.com/in/janedoe"},
		{name: "mixed doubled scheme collapsed", in: "http://https://linkedin.com/in/janedoe", want: "https://linkedin.com/in/janedoe"},
		{name: "not a profile host", in: "https://example.com/in/janedoe", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeProfileURL(tt.in))
		})
	}
}
