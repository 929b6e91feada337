package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	passwordSaltLen = 16
	passwordKeyLen  = 32
)

// ErrMalformedHash reports a stored password hash this package cannot read.
var ErrMalformedHash = errors.New("malformed argon2id hash")

// PasswordParams are the argon2id cost settings used for new hashes. Stored
// hashes carry their own settings, so changing these never locks anyone out.
type PasswordParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

var DefaultPasswordParams = PasswordParams{
	MemoryKiB:   64 * 1024,
	Iterations:  3,
	Parallelism: 2,
}

// OrDefault fills unset fields from DefaultPasswordParams.
func (p PasswordParams) OrDefault() PasswordParams {
	if p.MemoryKiB == 0 {
		p.MemoryKiB = DefaultPasswordParams.MemoryKiB
	}
	if p.Iterations == 0 {
		p.Iterations = DefaultPasswordParams.Iterations
	}
	if p.Parallelism == 0 {
		p.Parallelism = DefaultPasswordParams.Parallelism
	}
	return p
}

// Validate rejects settings argon2 itself would refuse or silently clamp.
func (p PasswordParams) Validate() error {
	switch {
	case p.Iterations < 1:
		return errors.New("argon2 iterations must be at least 1")
	case p.Parallelism < 1:
		return errors.New("argon2 parallelism must be at least 1")
	case p.MemoryKiB < 8*uint32(p.Parallelism):
		return fmt.Errorf("argon2 memory must be at least %d KiB for parallelism %d", 8*uint32(p.Parallelism), p.Parallelism)
	}
	return nil
}

// Hash derives a PHC-formatted argon2id hash with a fresh random salt.
func (p PasswordParams) Hash(plaintext string) (string, error) {
	p = p.OrDefault()
	salt := make([]byte, passwordSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, p.Iterations, p.MemoryKiB, p.Parallelism, passwordKeyLen)

	enc := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKiB, p.Iterations, p.Parallelism,
		enc.EncodeToString(salt), enc.EncodeToString(key),
	), nil
}

func HashPassword(plaintext string) (string, error) {
	return DefaultPasswordParams.Hash(plaintext)
}

// VerifyPassword recomputes the key with the settings stored in hash and
// compares in constant time.
func VerifyPassword(hash, plaintext string) (bool, error) {
	stored, err := parsePasswordHash(hash)
	if err != nil {
		return false, err
	}
	p := stored.params
	key := argon2.IDKey([]byte(plaintext), stored.salt, p.Iterations, p.MemoryKiB, p.Parallelism, uint32(len(stored.key)))
	return subtle.ConstantTimeCompare(stored.key, key) == 1, nil
}

type passwordHash struct {
	params PasswordParams
	salt   []byte
	key    []byte
}

// parsePasswordHash reads $argon2id$v=19$m=..,t=..,p=..$salt$key.
func parsePasswordHash(hash string) (passwordHash, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return passwordHash{}, fmt.Errorf("%w: not argon2id", ErrMalformedHash)
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return passwordHash{}, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	var out passwordHash
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return passwordHash{}, fmt.Errorf("%w: param %q", ErrMalformedHash, kv)
		}
		bits := 32
		if k == "p" {
			bits = 8
		}
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			return passwordHash{}, fmt.Errorf("%w: param %s", ErrMalformedHash, k)
		}
		switch k {
		case "m":
			out.params.MemoryKiB = uint32(n)
		case "t":
			out.params.Iterations = uint32(n)
		case "p":
			out.params.Parallelism = uint8(n)
		default:
			return passwordHash{}, fmt.Errorf("%w: unknown param %s", ErrMalformedHash, k)
		}
	}
	if err := out.params.Validate(); err != nil {
		return passwordHash{}, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(out.salt) == 0 {
		return passwordHash{}, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(out.key) == 0 {
		return passwordHash{}, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return out, nil
}
