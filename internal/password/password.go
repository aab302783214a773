// ABOUTME: Argon2id password hashing keyed with a process-wide pepper secret
// ABOUTME: CPU-bound work runs through a bounded pool so hashing cannot starve request handling

package password

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

// ErrInvalidHash is returned for malformed or unsupported encoded hashes.
var ErrInvalidHash = errors.New("invalid password hash")

const argon2Version = argon2.Version

// Params controls Argon2id hashing cost. Memory is in KiB as required by
// argon2.IDKey.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams is a conservative baseline for interactive logins.
func DefaultParams() Params {
	return Params{
		MemoryKiB:   64 * 1024,
		Iterations:  1,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher hashes and verifies passwords. The pepper is a process-wide secret
// mixed into every password before key derivation: a leaked hash table is
// useless without the pepper, and vice versa. The pepper is independent of
// the token signing secret.
type Hasher struct {
	pepper []byte
	params Params
	sem    *semaphore.Weighted
}

// NewHasher creates a hasher with the given pepper and params. Concurrency
// of the underlying key derivation is capped at min(NumCPU, 4) in-flight
// calls; additional callers suspend until a slot frees up.
func NewHasher(pepper []byte, params Params) *Hasher {
	slots := int64(runtime.NumCPU())
	if slots > 4 {
		slots = 4
	}
	if slots < 1 {
		slots = 1
	}
	return &Hasher{
		pepper: pepper,
		params: params,
		sem:    semaphore.NewWeighted(slots),
	}
}

// Hash derives an encoded Argon2id hash of the password:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<hash_b64>
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquiring hash slot: %w", err)
	}
	defer h.sem.Release(1)

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey(
		h.pepperedPassword(password),
		salt,
		h.params.Iterations,
		h.params.MemoryKiB,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	b64 := base64.RawStdEncoding
	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version,
		h.params.MemoryKiB,
		h.params.Iterations,
		h.params.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	)

	return encoded, nil
}

// Verify checks whether password matches the encoded hash. Returns
// (true, nil) for a match, (false, nil) for a mismatch and
// (false, ErrInvalidHash) for malformed or out-of-bounds hashes. A
// verification failure is never reported as a match.
func (h *Hasher) Verify(ctx context.Context, password, encodedHash string) (bool, error) {
	params, salt, expected, err := decode(encodedHash)
	if err != nil {
		return false, err
	}

	// Refuse attacker-controlled cost parameters far beyond our own
	if !withinBounds(params, h.params) {
		return false, ErrInvalidHash
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("acquiring hash slot: %w", err)
	}
	defer h.sem.Release(1)

	key := argon2.IDKey(
		h.pepperedPassword(password),
		salt,
		params.Iterations,
		params.MemoryKiB,
		params.Parallelism,
		uint32(len(expected)),
	)

	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

// pepperedPassword mixes the process pepper into the password via
// HMAC-SHA256 before key derivation. argon2.IDKey has no secret parameter
// of its own.
func (h *Hasher) pepperedPassword(password string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(password))
	return mac.Sum(nil)
}

func withinBounds(got, limits Params) bool {
	if got.MemoryKiB > limits.MemoryKiB*2 {
		return false
	}
	if got.Iterations > limits.Iterations*2 {
		return false
	}
	if got.Parallelism > limits.Parallelism*2 {
		return false
	}
	if got.SaltLength < 8 || got.SaltLength > 64 {
		return false
	}
	if got.KeyLength < 16 || got.KeyLength > 128 {
		return false
	}
	return true
}

// decode parses an encoded hash and returns its params, salt and key.
func decode(encoded string) (Params, []byte, []byte, error) {
	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Params{}, nil, nil, ErrInvalidHash
	}

	if parts[2] != fmt.Sprintf("v=%d", argon2Version) {
		return Params{}, nil, nil, ErrInvalidHash
	}

	var mem, iter uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	if mem == 0 || iter == 0 || par == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}

	params := Params{
		MemoryKiB:   mem,
		Iterations:  iter,
		Parallelism: par,
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}

	return params, salt, key, nil
}
