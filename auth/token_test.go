package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func newTestCodec(t *testing.T, clock *fakeClock) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(TokenConfig{
		SigningKey: testSigningKey,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	return codec
}

func TestNewTokenCodec_Defaults(t *testing.T) {
	codec, err := NewTokenCodec(TokenConfig{SigningKey: testSigningKey})
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	if codec.TTL() != DefaultTokenTTL {
		t.Errorf("TTL() = %v, want %v", codec.TTL(), DefaultTokenTTL)
	}
}

func TestNewTokenCodec_ShortKey(t *testing.T) {
	_, err := NewTokenCodec(TokenConfig{SigningKey: []byte("short")})
	if !errors.Is(err, ErrSigningKeyTooShort) {
		t.Errorf("NewTokenCodec() error = %v, want ErrSigningKeyTooShort", err)
	}
}

func TestTokenCodec_IssueVerify(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)

	issued, err := codec.Issue("johndoe", 0)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if issued.ID == "" {
		t.Error("Issue() should assign a token ID")
	}
	if !issued.ExpiresAt.Equal(clock.now.Add(DefaultTokenTTL)) {
		t.Errorf("ExpiresAt = %v, want %v", issued.ExpiresAt, clock.now.Add(DefaultTokenTTL))
	}

	got, err := codec.Verify(issued.Value)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.Subject != "johndoe" {
		t.Errorf("Subject = %q, want johndoe", got.Subject)
	}
	if got.ID != issued.ID {
		t.Errorf("ID = %q, want %q", got.ID, issued.ID)
	}
	if !got.IssuedAt.Equal(issued.IssuedAt) || !got.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Errorf("Verify() times = (%v, %v), want (%v, %v)", got.IssuedAt, got.ExpiresAt, issued.IssuedAt, issued.ExpiresAt)
	}
}

func TestTokenCodec_IssueEmptySubject(t *testing.T) {
	codec := newTestCodec(t, newFakeClock())
	if _, err := codec.Issue("", 0); !errors.Is(err, ErrTokenMissingSubject) {
		t.Errorf("Issue(\"\") error = %v, want ErrTokenMissingSubject", err)
	}
}

func TestTokenCodec_UniqueIDs(t *testing.T) {
	codec := newTestCodec(t, newFakeClock())
	a, _ := codec.Issue("alice", 0)
	b, _ := codec.Issue("alice", 0)
	if a.ID == b.ID {
		t.Error("two issued tokens share an ID")
	}
}

func TestTokenCodec_Expiry(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)

	tok, err := codec.Issue("johndoe", time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock.Advance(59 * time.Second)
	if _, err := codec.Verify(tok.Value); err != nil {
		t.Fatalf("Verify() before expiry error = %v", err)
	}

	clock.Advance(2 * time.Second)
	_, err = codec.Verify(tok.Value)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify() after expiry error = %v, want ErrTokenExpired", err)
	}
	if !errors.Is(err, ErrUnauthenticated) {
		t.Error("expired token should match ErrUnauthenticated")
	}
	if FailureReason(err) != "expired" {
		t.Errorf("FailureReason() = %q, want expired", FailureReason(err))
	}
}

func TestTokenCodec_ExpiryBoundaryInclusive(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)

	tok, err := codec.Issue("johndoe", time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock.now = tok.ExpiresAt
	got, err := codec.Verify(tok.Value)
	if err != nil {
		t.Fatalf("Verify() at ExpiresAt error = %v, want nil", err)
	}
	if !got.ExpiresAt.Equal(tok.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, tok.ExpiresAt)
	}

	clock.Advance(time.Nanosecond)
	if _, err := codec.Verify(tok.Value); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify() just after ExpiresAt error = %v, want ErrTokenExpired", err)
	}
}

func TestTokenCodec_FutureIssuedAt(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)

	claims := jwt.RegisteredClaims{
		Subject:   "johndoe",
		IssuedAt:  jwt.NewNumericDate(clock.now.Add(time.Hour)),
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(2 * time.Hour)),
	}
	value, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if _, err := codec.Verify(value); !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("Verify() error = %v, want ErrTokenMalformed", err)
	}
}

func TestTokenCodec_ClockSkew(t *testing.T) {
	clock := newFakeClock()
	codec, err := NewTokenCodec(TokenConfig{
		SigningKey: testSigningKey,
		ClockSkew:  30 * time.Second,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}

	tok, _ := codec.Issue("johndoe", time.Minute)
	clock.Advance(time.Minute + 10*time.Second)
	if _, err := codec.Verify(tok.Value); err != nil {
		t.Errorf("Verify() within leeway error = %v", err)
	}
	clock.Advance(time.Minute)
	if _, err := codec.Verify(tok.Value); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify() past leeway error = %v, want ErrTokenExpired", err)
	}
}

func TestTokenCodec_WrongKey(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)
	other, _ := NewTokenCodec(TokenConfig{
		SigningKey: []byte("fedcba9876543210fedcba9876543210"),
		Now:        clock.Now,
	})

	tok, _ := other.Issue("johndoe", 0)
	_, err := codec.Verify(tok.Value)
	if !errors.Is(err, ErrTokenBadSignature) {
		t.Errorf("Verify() error = %v, want ErrTokenBadSignature", err)
	}
}

func TestTokenCodec_SingleBitFlips(t *testing.T) {
	codec := newTestCodec(t, newFakeClock())
	tok, err := codec.Issue("johndoe", 0)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	raw := []byte(tok.Value)
	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			mutated := make([]byte, len(raw))
			copy(mutated, raw)
			mutated[i] ^= 1 << bit

			_, err := codec.Verify(string(mutated))
			if err == nil {
				t.Fatalf("Verify() accepted token with byte %d bit %d flipped", i, bit)
			}
			if !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("byte %d bit %d: error = %v, want ErrUnauthenticated", i, bit, err)
			}
			if !errors.Is(err, ErrTokenBadSignature) {
				t.Fatalf("byte %d bit %d: error = %v, want ErrTokenBadSignature", i, bit, err)
			}
		}
	}
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	codec := newTestCodec(t, newFakeClock())

	claims := jwt.RegisteredClaims{
		Subject:   "johndoe",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	if _, err := codec.Verify(none); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Verify(alg=none) error = %v, want ErrUnauthenticated", err)
	}

	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSigningKey)
	if _, err := codec.Verify(hs512); !errors.Is(err, ErrTokenBadSignature) {
		t.Errorf("Verify(alg=HS512) error = %v, want ErrTokenBadSignature", err)
	}
}

func TestTokenCodec_MissingSubject(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)

	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(clock.now),
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
	}
	value, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)

	_, err := codec.Verify(value)
	if !errors.Is(err, ErrTokenMissingSubject) {
		t.Errorf("Verify() error = %v, want ErrTokenMissingSubject", err)
	}
}

func TestTokenCodec_MissingExpiry(t *testing.T) {
	codec := newTestCodec(t, newFakeClock())

	value, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "johndoe"}).SignedString(testSigningKey)
	if _, err := codec.Verify(value); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Verify() error = %v, want ErrUnauthenticated", err)
	}
}

func TestTokenCodec_Issuer(t *testing.T) {
	clock := newFakeClock()
	issuing, _ := NewTokenCodec(TokenConfig{SigningKey: testSigningKey, Issuer: "tokenauthd", Now: clock.Now})
	plain := newTestCodec(t, clock)

	tok, _ := plain.Issue("johndoe", 0)
	if _, err := issuing.Verify(tok.Value); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Verify() without iss error = %v, want ErrUnauthenticated", err)
	}

	tok, _ = issuing.Issue("johndoe", 0)
	if _, err := issuing.Verify(tok.Value); err != nil {
		t.Errorf("Verify() with iss error = %v", err)
	}
}

func TestTokenCodec_Garbage(t *testing.T) {
	codec := newTestCodec(t, newFakeClock())

	tests := []struct {
		value string
		want  error
	}{
		{"", ErrTokenMalformed},
		{"abc", ErrTokenMalformed},
		{strings.Repeat("x", 512), ErrTokenMalformed},
		{"a.b.c", ErrTokenBadSignature},
		{"Bearer a.b.c", ErrTokenBadSignature},
		{"a.b.", ErrTokenBadSignature},
	}
	for _, tt := range tests {
		_, err := codec.Verify(tt.value)
		if !errors.Is(err, tt.want) {
			t.Errorf("Verify(%q) error = %v, want %v", tt.value, err, tt.want)
		}
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("Verify(%q) error = %v, want ErrUnauthenticated", tt.value, err)
		}
	}
}
