// Package passgen generates random passwords from character classes.
//
// Every position is drawn independently and uniformly from the union of
// the selected classes. There is no guarantee that each selected class
// appears in the result.
package passgen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// Class is a bit set of character classes.
type Class uint8

const (
	Lower Class = 1 << iota
	Upper
	Digit
	Symbol

	All = Lower | Upper | Digit | Symbol
)

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()_+~`|}{[]:;?><,./-="
)

var (
	ErrEmptyCharacterPool = errors.New("no character classes selected")
	ErrInvalidLength      = errors.New("password length must be at least 1")
)

var classNames = []struct {
	class Class
	name  string
	chars string
}{
	{Lower, "lower", lowerChars},
	{Upper, "upper", upperChars},
	{Digit, "digit", digitChars},
	{Symbol, "symbol", symbolChars},
}

// Pool returns the characters selected by c, in lower, upper, digit, symbol order.
func (c Class) Pool() string {
	var b strings.Builder
	for _, cn := range classNames {
		if c&cn.class != 0 {
			b.WriteString(cn.chars)
		}
	}
	return b.String()
}

func (c Class) String() string {
	var names []string
	for _, cn := range classNames {
		if c&cn.class != 0 {
			names = append(names, cn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseClasses parses a comma separated list such as "lower,upper,digit".
// "all" selects every class. Plural forms are accepted.
func ParseClasses(s string) (Class, error) {
	var c Class
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(part)), "s")
		switch name {
		case "":
			continue
		case "all":
			c |= All
		case "lower", "lowercase":
			c |= Lower
		case "upper", "uppercase":
			c |= Upper
		case "digit", "number":
			c |= Digit
		case "symbol", "special":
			c |= Symbol
		default:
			return 0, fmt.Errorf("unknown character class %q", part)
		}
	}
	return c, nil
}

// Generator draws passwords from a cryptographically secure source.
type Generator struct {
	rand io.Reader
}

// New returns a generator reading from crypto/rand.
func New() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewWithReader returns a generator reading from r.
func NewWithReader(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate returns a password of length characters from the classes pool.
func (g *Generator) Generate(length int, classes Class) (string, error) {
	if length < 1 {
		return "", ErrInvalidLength
	}
	pool := classes.Pool()
	if pool == "" {
		return "", ErrEmptyCharacterPool
	}

	max := big.NewInt(int64(len(pool)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(g.rand, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		out[i] = pool[n.Int64()]
	}
	return string(out), nil
}

// Generate is New().Generate.
func Generate(length int, classes Class) (string, error) {
	return New().Generate(length, classes)
}
