package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/argon2"
)

// phc encodes key material the way an operator-generated users[] entry would.
func phc(memory, time uint32, threads uint8, salt, key []byte) string {
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memory, time, threads, b64.EncodeToString(salt), b64.EncodeToString(key))
}

func TestHashPassword_VerifiesOnlyOriginal(t *testing.T) {
	encoded, err := HashPassword("dashboard-admin-pass")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	for _, tc := range []struct {
		candidate string
		want      bool
	}{
		{"dashboard-admin-pass", true},
		{"dashboard-admin-pass ", false},
		{"Dashboard-admin-pass", false},
		{"", false},
	} {
		ok, err := VerifyPassword(tc.candidate, encoded)
		if err != nil {
			t.Fatalf("VerifyPassword(%q) error = %v", tc.candidate, err)
		}
		if ok != tc.want {
			t.Errorf("VerifyPassword(%q) = %v, want %v", tc.candidate, ok, tc.want)
		}
	}
}

func TestHashPassword_EncodesDefaultCost(t *testing.T) {
	a, err := HashPassword("admin1")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	b, err := HashPassword("admin1")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if a == b {
		t.Error("salts repeated across calls")
	}

	want := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$",
		argon2.Version, defaultParams.memory, defaultParams.time, defaultParams.threads)
	if !strings.HasPrefix(a, want) {
		t.Errorf("hash = %q, want prefix %q", a, want)
	}
}

func TestVerifyPassword_ReadsCostFromHash(t *testing.T) {
	// A cheaper hash produced elsewhere must still verify after the
	// defaults change.
	salt := []byte("fixed-salt-bytes")
	key := argon2.IDKey([]byte("mobile-ops"), salt, 1, 8*1024, 2, 24)
	encoded := phc(8*1024, 1, 2, salt, key)

	ok, err := VerifyPassword("mobile-ops", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("VerifyPassword() = false for a hash with non-default cost")
	}
}

func TestVerifyPassword_MalformedIsError(t *testing.T) {
	good, err := HashPassword("x")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	fields := strings.Split(good, "$")

	cases := map[string]string{
		"blank":         "",
		"bcrypt":        "$2a$10$abcdefghijklmnopqrstuv",
		"argon2i":       strings.Replace(good, "$argon2id$", "$argon2i$", 1),
		"truncated":     strings.Join(fields[:4], "$"),
		"old version":   strings.Replace(good, "$v=19$", "$v=16$", 1),
		"salt not b64":  strings.Replace(good, fields[4], "***", 1),
		"empty key":     strings.Join(append(fields[:5:5], ""), "$"),
		"cost not ints": strings.Replace(good, fields[3], "m=lots,t=3,p=1", 1),
		"leading junk":  "x" + good,
	}
	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			ok, err := VerifyPassword("x", encoded)
			if !errors.Is(err, errBadHash) {
				t.Errorf("VerifyPassword() error = %v, want errBadHash", err)
			}
			if ok {
				t.Error("VerifyPassword() = true on a malformed hash")
			}
		})
	}
}
