package cryptox

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Character classes used by GeneratePassword.
const (
	Uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Lowercase = "abcdefghijklmnopqrstuvwxyz"
	Numbers   = "0123456789"
	Symbols   = "~!@#$%^&*()_-+=.,;"
)

// GenerateRule describes the password generator settings.
type GenerateRule struct {
	Length    int  `json:"length"`
	Number    bool `json:"number"`
	Lowercase bool `json:"lowercase"`
	Uppercase bool `json:"uppercase"`
	Symbol    bool `json:"symbol"`
}

// DefaultGenerateRule is 16 characters drawn from every class.
func DefaultGenerateRule() GenerateRule {
	return GenerateRule{Length: 16, Number: true, Lowercase: true, Uppercase: true, Symbol: true}
}

// GeneratePassword draws rule.Length characters round-robin from the enabled
// classes, minus any character in exclude, then shuffles the result.
// It returns "" when no class has characters left.
func GeneratePassword(rule GenerateRule, exclude string) string {
	var pools []string
	for _, p := range []struct {
		on  bool
		set string
	}{
		{rule.Uppercase, Uppercase},
		{rule.Lowercase, Lowercase},
		{rule.Number, Numbers},
		{rule.Symbol, Symbols},
	} {
		if !p.on {
			continue
		}
		set := strings.Map(func(r rune) rune {
			if strings.ContainsRune(exclude, r) {
				return -1
			}
			return r
		}, p.set)
		if set != "" {
			pools = append(pools, set)
		}
	}

	if len(pools) == 0 || rule.Length <= 0 {
		return ""
	}

	out := make([]byte, rule.Length)
	for i := range out {
		pool := pools[i%len(pools)]
		out[i] = pool[randIntn(len(pool))]
	}

	// Fisher-Yates so the class order is not predictable
	for i := len(out) - 1; i > 0; i-- {
		j := randIntn(i + 1)
		out[i], out[j] = out[j], out[i]
	}

	return string(out)
}

func randIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}
	return int(v.Int64())
}

var (
	reDigit  = regexp.MustCompile(`[0-9]`)
	reLower  = regexp.MustCompile(`[a-z]`)
	reUpper  = regexp.MustCompile(`[A-Z]`)
	reSymbol = regexp.MustCompile(`[^0-9a-zA-Z_]`)
)

// Strength scores a password from 0 (empty) to 3 (strong). Passwords shorter
// than six characters never score above 2.
func Strength(password string) int {
	if password == "" {
		return 0
	}
	lvl := 0
	for _, re := range []*regexp.Regexp{reDigit, reLower, reUpper, reSymbol} {
		if re.MatchString(password) {
			lvl++
		}
	}
	if utf8.RuneCountInString(password) < 6 && lvl > 2 {
		lvl = 2
	}
	if lvl > 3 {
		lvl = 3
	}
	return lvl
}
