package fingerprint

import (
	"net/http"
	"regexp"
	"testing"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestGenerateDeterministicAndFixedLength(t *testing.T) {
	a := Generate("Mozilla/5.0", "en-US,en;q=0.9", "gzip, deflate, br")
	b := Generate("Mozilla/5.0", "en-US,en;q=0.9", "gzip, deflate, br")
	if a != b {
		t.Fatalf("expected identical ids, got %q and %q", a, b)
	}
	if len(a) != Length || !hexID.MatchString(a) {
		t.Fatalf("expected %d hex chars, got %q", Length, a)
	}
}

func TestGenerateDiffersPerField(t *testing.T) {
	base := Generate("ua", "lang", "enc")
	variants := map[string]string{
		"user-agent":      Generate("ua2", "lang", "enc"),
		"accept-language": Generate("ua", "lang2", "enc"),
		"accept-encoding": Generate("ua", "lang", "enc2"),
	}
	for field, id := range variants {
		if id == base {
			t.Fatalf("changing %s must change the device id", field)
		}
	}
}

func TestGenerateFieldBoundariesDoNotCollide(t *testing.T) {
	if Generate("ab", "", "") == Generate("a", "b", "") {
		t.Fatal("shifting bytes between fields must not collide")
	}
	if Generate("", "", "") == Generate("", "", " ") {
		t.Fatal("empty and whitespace encodings must differ")
	}
}

func TestFromHeadersIgnoresOtherSignals(t *testing.T) {
	h1 := http.Header{}
	h1.Set("User-Agent", "Mozilla/5.0")
	h1.Set("Accept-Language", "fr-FR")
	h1.Set("Accept-Encoding", "gzip")
	h1.Set("Cookie", "session=abc")
	h1.Set("X-Forwarded-For", "10.0.0.1")

	h2 := h1.Clone()
	h2.Set("Cookie", "session=xyz")
	h2.Set("X-Forwarded-For", "192.168.1.1")

	if FromHeaders(h1) != FromHeaders(h2) {
		t.Fatal("cookies and ip headers must not participate in the fingerprint")
	}
	if FromHeaders(h1) != Generate("Mozilla/5.0", "fr-FR", "gzip") {
		t.Fatal("FromHeaders must match Generate over the same triple")
	}
}

func TestFromHeadersMissingValuesAreEmpty(t *testing.T) {
	if FromHeaders(http.Header{}) != Generate("", "", "") {
		t.Fatal("absent headers must hash as empty strings")
	}
}

func FuzzGenerateInvariants(f *testing.F) {
	f.Add("Mozilla/5.0", "en-US", "gzip")
	f.Add("", "", "")
	f.Add("a\nb", "c", "")

	f.Fuzz(func(t *testing.T, ua, lang, enc string) {
		got := Generate(ua, lang, enc)
		if !hexID.MatchString(got) {
			t.Fatalf("device id must be 64 lowercase hex chars: %q", got)
		}
		if again := Generate(ua, lang, enc); again != got {
			t.Fatalf("Generate must be deterministic: first=%q second=%q", got, again)
		}
	})
}
