package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	maxPassBytes          = 1024
	algorithmID           = "argon2id"
)

var (
	// ErrMalformedHash is returned when a stored hash is not a PHC argon2id string.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrPasswordTooLong guards argon2 against unbounded input.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
)

// Config holds Argon2id cost parameters.
type Config struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns parameters sized for a development backend running next
// to a test suite: the floor the hasher accepts, single pass.
func DefaultConfig() Config {
	return Config{
		Memory:      minMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  minSaltLength,
		KeyLength:   32,
	}
}

// Hasher produces and checks PHC-encoded Argon2id hashes.
type Hasher struct {
	config Config
}

// NewHasher validates cfg and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, fmt.Errorf("password memory must be >= %d KiB", minMemoryKB)
	case cfg.Time < 1:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return nil, fmt.Errorf("password key length must be >= %d", minKeyLength)
	}
	return &Hasher{config: cfg}, nil
}

// Hash returns the PHC encoding of plain under a fresh random salt.
func (h *Hasher) Hash(plain string) (string, error) {
	if len(plain) > maxPassBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plain), salt, h.config.Time, h.config.Memory, h.config.Parallelism, h.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plain matches encoded. The parameters stored in the
// hash win over the hasher's own config so old hashes keep verifying.
func (h *Hasher) Verify(plain, encoded string) (bool, error) {
	if len(plain) > maxPassBytes {
		return false, ErrPasswordTooLong
	}

	p, err := decode(encoded)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(plain), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func decode(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, ErrMalformedHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	out := &phc{}
	for _, pair := range strings.Split(parts[3], ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, ErrMalformedHash
		}
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || v == 0 {
			return nil, fmt.Errorf("%w: parameter %s", ErrMalformedHash, name)
		}
		switch name {
		case "m":
			out.memory = uint32(v)
		case "t":
			out.time = uint32(v)
		case "p":
			if v > 255 {
				return nil, fmt.Errorf("%w: parameter p", ErrMalformedHash)
			}
			out.parallelism = uint8(v)
		default:
			return nil, fmt.Errorf("%w: parameter %s", ErrMalformedHash, name)
		}
	}
	if out.memory == 0 || out.time == 0 || out.parallelism == 0 {
		return nil, fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(out.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(out.key) == 0 {
		return nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return out, nil
}
