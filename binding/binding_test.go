package binding

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return v
}

func TestInterpolate(t *testing.T) {
	data := decode(t, `{"shop":{"name":"Blue Door","since":1999,"tags":["bread","cake"]}}`)
	cases := []struct {
		in, want string
	}{
		{"Welcome to ${shop.name}", "Welcome to Blue Door"},
		{"Since ${shop.since}", "Since 1999"},
		{"${shop.tags[1]}", "cake"},
		{"${shop.phone|Call us}", "Call us"},
		{"${shop.phone}", "${shop.phone}"},
		{"${ shop.name }", "Blue Door"},
		{"plain", "plain"},
	}
	for _, c := range cases {
		if got := Interpolate(c.in, data); got != c.want {
			t.Fatalf("Interpolate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestInterpolateWithoutData(t *testing.T) {
	if got := Interpolate("${name|Shop}", nil); got != "Shop" {
		t.Fatalf("expected fallback without data, got %q", got)
	}
	if got := Interpolate("${name}", nil); got != "${name}" {
		t.Fatalf("expected placeholder kept, got %q", got)
	}
}
