// Package fingerprint derives a low-assurance device fingerprint from local
// environment signals. It wraps cached login material at rest and is not a
// security boundary: anyone on the same machine can recompute it.
package fingerprint

import (
	"encoding/hex"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// domainKey separates fingerprint digests from any other BLAKE3 use.
var domainKey = [32]byte{
	'p', 'a', 's', 's', 'w', 'o', 'r', 'd', '-', 'x', 'l', '.',
	'f', 'i', 'n', 'g', 'e', 'r', 'p', 'r', 'i', 'n', 't',
}

// Signals is the bundle of environment values that feeds the digest.
type Signals struct {
	TimeZone string
	Locale   string
	CPUs     int
	Hostname string
	Username string
	Platform string
}

// Collect gathers signals from the running process. Each one is best effort;
// a failing source leaves its field empty.
func Collect() Signals {
	s := Signals{
		TimeZone: time.Local.String(),
		Locale:   locale(),
		CPUs:     runtime.NumCPU(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	if h, err := os.Hostname(); err == nil {
		s.Hostname = h
	}
	if u, err := user.Current(); err == nil {
		s.Username = u.Username
	}
	return s
}

func locale() string {
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Digest returns the hex BLAKE3 keyed hash of the signals.
func (s Signals) Digest() string {
	param := strings.Join([]string{
		s.TimeZone,
		s.Locale,
		strconv.Itoa(s.CPUs),
		s.Hostname,
		s.Username,
		s.Platform,
	}, ",")

	h, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		panic("fingerprint: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = h.Write([]byte(param))
	return hex.EncodeToString(h.Sum(nil))
}

// Device returns the fingerprint of the current machine.
func Device() string {
	return Collect().Digest()
}
