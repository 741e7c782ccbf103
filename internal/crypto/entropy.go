// Package crypto generates random passwords and passphrases for new entries.
package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Character classes. Lowercase letters are always part of the alphabet.
const (
	Lowercase = "abcdefghijklmnopqrstuvwxyz"
	Uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Numbers   = "0123456789"
	Special   = "!@#$%^&*()-_=+[]{}|;:,.<>?"
)

// DefaultLength is the generated password length when none is configured.
const DefaultLength = 16

// maxAttempts bounds the regenerate loop. With a real random source and
// any allowed length the chance of exhausting it is negligible.
const maxAttempts = 1000

var (
	errInvalidLength   = errors.New("length must be positive")
	errInvalidWordSize = errors.New("word count must be positive")
	errTooShort        = errors.New("length is shorter than the number of required character classes")
	errExhausted       = errors.New("could not satisfy the password policy")
)

// Policy selects the character classes of a generated password. Every
// enabled class appears at least once in the result.
type Policy struct {
	Length           int
	IncludeUppercase bool
	IncludeNumbers   bool
	IncludeSpecial   bool
}

// DefaultPolicy enables every class at DefaultLength.
func DefaultPolicy() Policy {
	return Policy{
		Length:           DefaultLength,
		IncludeUppercase: true,
		IncludeNumbers:   true,
		IncludeSpecial:   true,
	}
}

func (p Policy) classes() []string {
	classes := []string{Lowercase}
	if p.IncludeUppercase {
		classes = append(classes, Uppercase)
	}
	if p.IncludeNumbers {
		classes = append(classes, Numbers)
	}
	if p.IncludeSpecial {
		classes = append(classes, Special)
	}
	return classes
}

// Alphabet returns every character the policy may emit.
func (p Policy) Alphabet() string {
	return strings.Join(p.classes(), "")
}

// Satisfied reports whether password contains every enabled class.
func (p Policy) Satisfied(password string) bool {
	for _, class := range p.classes() {
		if !strings.ContainsAny(password, class) {
			return false
		}
	}
	return true
}

var (
	randSource io.Reader = rand.Reader
	randMux    sync.RWMutex
)

var dicewareAdjectives = []string{
	"able", "amber", "brave", "calm", "clever", "crisp", "daring", "eager", "early", "fancy", "gentle", "happy", "ideal", "jolly", "keen", "lively", "magic", "noble", "oaken", "pearl", "quick", "ready", "solar", "tidy", "urban", "vivid", "warm", "young", "zesty", "bright", "candid", "dazzle", "elegant", "friendly", "glossy", "humble",
}

var dicewareNouns = []string{
	"anchor", "beacon", "canyon", "dream", "ember", "forest", "galaxy", "harbor", "island", "jungle", "kingdom", "lantern", "meadow", "nebula", "ocean", "prairie", "quartz", "river", "summit", "temple", "unicorn", "valley", "willow", "xenon", "yonder", "zephyr", "apple", "bridge", "comet", "dragon", "feather", "garden", "horizon", "idol", "jade", "keeper", "legend",
}

var (
	dicewareList []string
	dicewareOnce sync.Once
)

// SetRandomSource sets the random number generator source.
// If r is nil, it resets to the default crypto/rand.Reader.
func SetRandomSource(r io.Reader) {
	randMux.Lock()
	if r == nil {
		randSource = rand.Reader
	} else {
		randSource = r
	}
	randMux.Unlock()
}

func source() io.Reader {
	randMux.RLock()
	defer randMux.RUnlock()
	return randSource
}

// GeneratePassword draws policy.Length characters uniformly from the
// policy alphabet, regenerating until every enabled class is present.
func GeneratePassword(policy Policy) (string, error) {
	if policy.Length <= 0 {
		return "", errInvalidLength
	}
	if policy.Length < len(policy.classes()) {
		return "", errTooShort
	}

	chars := []rune(policy.Alphabet())
	src := source()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var b strings.Builder
		b.Grow(policy.Length)
		for i := 0; i < policy.Length; i++ {
			idx, err := randomIndex(src, len(chars))
			if err != nil {
				return "", fmt.Errorf("random source failed: %w", err)
			}
			b.WriteRune(chars[idx])
		}
		if pw := b.String(); policy.Satisfied(pw) {
			return pw, nil
		}
	}
	return "", errExhausted
}

// GenerateDiceware generates a list of random words using the diceware method.
// wordCount specifies how many words to generate.
func GenerateDiceware(wordCount int) ([]string, error) {
	if wordCount <= 0 {
		return nil, errInvalidWordSize
	}

	words := dicewareWords()
	src := source()

	result := make([]string, wordCount)
	for i := 0; i < wordCount; i++ {
		idx, err := randomIndex(src, len(words))
		if err != nil {
			return nil, err
		}
		result[i] = words[idx]
	}

	return result, nil
}

func dicewareWords() []string {
	dicewareOnce.Do(func() {
		pairs := len(dicewareAdjectives) * len(dicewareNouns)
		merged := make([]string, 0, pairs)
		for _, adj := range dicewareAdjectives {
			for _, noun := range dicewareNouns {
				merged = append(merged, adj+"-"+noun)
			}
		}
		dicewareList = merged
	})
	return dicewareList
}

// randomIndex returns a uniform value in [0, max) using rejection sampling.
func randomIndex(r io.Reader, max int) (int, error) {
	if max <= 0 {
		return 0, errInvalidLength
	}

	if max <= 256 {
		var buf [1]byte
		usable := 256 - (256 % max)
		for {
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return 0, err
			}
			if int(buf[0]) < usable {
				return int(buf[0]) % max, nil
			}
		}
	}

	if max <= 65536 {
		var buf [2]byte
		usable := 65536 - (65536 % max)
		for {
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return 0, err
			}
			val := int(binary.BigEndian.Uint16(buf[:]))
			if val < usable {
				return val % max, nil
			}
		}
	}

	var buf [4]byte
	const maxUint32 = ^uint32(0)
	limit := maxUint32 - (maxUint32 % uint32(max))
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		val := binary.BigEndian.Uint32(buf[:])
		if val < limit {
			return int(val % uint32(max)), nil
		}
	}
}
