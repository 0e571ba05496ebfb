package locks

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	tok, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if tok.IsZero() {
		t.Fatal("fresh token should not be zero")
	}

	hex := tok.Hex()
	if len(hex) != 32 {
		t.Fatalf("hex length = %d, want 32", len(hex))
	}

	parsed, err := ParseToken(hex)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if parsed != tok {
		t.Fatalf("round-tripped token mismatch: %v != %v", parsed, tok)
	}
}

func TestParseTokenRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"not-hex-zzzz",
		"ab",            // too short
		"00112233445566778899aabbccddeeff00", // too long
	}
	for _, c := range cases {
		if _, err := ParseToken(c); err == nil {
			t.Errorf("ParseToken(%q) succeeded, want error", c)
		}
	}
}

func TestTokensAreDistinct(t *testing.T) {
	seen := make(map[Token]bool)
	for i := 0; i < 1000; i++ {
		tok, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %v", tok)
		}
		seen[tok] = true
	}
}
