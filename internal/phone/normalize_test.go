package phone

import "testing"

func TestNormalize(t *testing.T) {
	n := NewNormalizer(DefaultRules())

	tests := []struct {
		name     string
		raw      string
		want     string
		resolved bool
	}{
		{name: "domain suffix", raw: "6281234567890@s.whatsapp.net", want: "6281234567890", resolved: true},
		{name: "device suffix", raw: "6281234567890:12@s.whatsapp.net", want: "6281234567890", resolved: true},
		{name: "local trunk prefix", raw: "081234567890", want: "6281234567890", resolved: true},
		{name: "formatted international", raw: "+62 812-3456-7890", want: "6281234567890", resolved: true},
		{name: "bare mobile prefix", raw: "81234567890", want: "6281234567890", resolved: true},
		{name: "international dialing prefix", raw: "006581234567", want: "6581234567", resolved: true},
		{name: "dialing prefix before trunk prefix", raw: "00081234567", want: "6281234567", resolved: true},
		{name: "dialing prefix before bare mobile", raw: "0081234567890", want: "6281234567890", resolved: true},
		{name: "foreign number untouched", raw: "+1 415 555 0100", want: "14155550100", resolved: true},
		{name: "linked identifier domain", raw: "123456789012@lid", want: "lid:123456789012"},
		{name: "reserved leading block", raw: "201234567890123", want: "lid:201234567890123"},
		{name: "excessive length", raw: "6281234567890123456", want: "lid:6281234567890123456"},
		{name: "degraded key is stable", raw: "lid:201234567890123", want: "lid:201234567890123"},
		{name: "no digits", raw: "status@broadcast", want: ""},
		{name: "only dialing prefixes", raw: "0000", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.raw)
			if got.Key != tt.want || got.Resolved != tt.resolved {
				t.Errorf("Normalize(%q) = %+v, want {Key:%s Resolved:%v}", tt.raw, got, tt.want, tt.resolved)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := NewNormalizer(DefaultRules())
	inputs := []string{
		"6281234567890@s.whatsapp.net",
		"6281234567890:3@s.whatsapp.net",
		"0812 3456 7890",
		"+62-812-3456-7890",
		"006581234567",
		"00081234567",
		"000812345678@s.whatsapp.net",
		"0081234567890",
		"0000",
		"201234567890123@lid",
		"123456789012@lid",
		"99999999999999999",
		"14155550100",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		twice := n.Normalize(once.Key)
		if once != twice {
			t.Errorf("Normalize(Normalize(%q)) = %+v, want %+v", in, twice, once)
		}
	}
}

func TestLocalAndCountryCodeFormsAreEqual(t *testing.T) {
	n := NewNormalizer(DefaultRules())
	pairs := [][2]string{
		{"081234567890", "6281234567890"},
		{"0812-3456-7890", "+6281234567890@s.whatsapp.net"},
		{"81234567890", "6281234567890:7@s.whatsapp.net"},
	}
	for _, p := range pairs {
		if !n.Equal(p[0], p[1]) {
			t.Errorf("Equal(%q, %q) = false, want true", p[0], p[1])
		}
	}
	if n.Equal("201234567890123@lid", "201234567890123@lid") {
		t.Error("unresolved identifiers must never compare equal")
	}
}

func TestOverridesAreInjectedAndEmptyable(t *testing.T) {
	rules := DefaultRules()
	rules.Overrides = map[string]string{"201234567890123": "081299998888"}
	n := NewNormalizer(rules)

	got := n.Normalize("201234567890123@s.whatsapp.net")
	if !got.Resolved || got.Key != "6281299998888" {
		t.Fatalf("override not applied: %+v", got)
	}

	empty := NewNormalizer(DefaultRules())
	got = empty.Normalize("201234567890123@s.whatsapp.net")
	if got.Resolved {
		t.Fatalf("empty override table must leave opaque identifier unresolved: %+v", got)
	}
}

func TestOpaqueSignaturesFollowRules(t *testing.T) {
	rules := DefaultRules()
	rules.OpaquePrefixes = nil
	n := NewNormalizer(rules)

	got := n.Normalize("201234567890123")
	if !got.Resolved {
		t.Fatalf("with no reserved prefixes a 15 digit number resolves, got %+v", got)
	}
}

func TestCountryCodeComesFromRules(t *testing.T) {
	rules := DefaultRules()
	rules.CountryCode = "65"
	n := NewNormalizer(rules)

	tests := []struct {
		raw  string
		want string
	}{
		{"091234567", "6591234567"},
		{"00091234567", "6591234567"},
		// bare mobile shorthand is an Indonesian convention only
		{"81234567890", "81234567890"},
	}
	for _, tt := range tests {
		got := n.Normalize(tt.raw)
		if got.Key != tt.want || !got.Resolved {
			t.Errorf("Normalize(%q) = %+v, want %s", tt.raw, got, tt.want)
		}
		if again := n.Normalize(got.Key); again != got {
			t.Errorf("Normalize(%q) = %+v, want %+v", got.Key, again, got)
		}
	}
}
