package configstore

import "testing"

func TestNormalizeKey(t *testing.T) {
	testCases := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "Logging:LogLevel:Default", want: "logging:loglevel:default", ok: true},
		{in: "jwt.key", want: "jwt:key", ok: true},
		{in: "Jwt.Signing:Key", want: "jwt:signing:key", ok: true},
		{in: "ASPNETCORE_ENVIRONMENT", want: "aspnetcore_environment", ok: true},
		{in: "Ünïcode:Key", want: "Ünïcode:key", ok: true},
		{in: "", ok: false},
		{in: ":", ok: false},
		{in: "a::b", ok: false},
		{in: ".a", ok: false},
		{in: "a.", ok: false},
	}

	for _, tc := range testCases {
		got, ok := NormalizeKey(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("NormalizeKey(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDisplayKeyPreservesCase(t *testing.T) {
	got, ok := DisplayKey("Jwt.Signing:Key")
	if !ok || got != "Jwt:Signing:Key" {
		t.Fatalf("unexpected display key %q (%v)", got, ok)
	}
}

func TestDropSegments(t *testing.T) {
	if got := dropSegments("a:b:c", 1); got != "b:c" {
		t.Fatalf("expected b:c, got %s", got)
	}
	if got := dropSegments("a:b:c", 0); got != "a:b:c" {
		t.Fatalf("expected unchanged key, got %s", got)
	}
	if got := dropSegments("a", 2); got != "" {
		t.Fatalf("expected empty remainder, got %s", got)
	}
}
