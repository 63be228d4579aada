// Package fingerprint computes the comparable summary of a file used to decide
// whether a source and a destination file are the same.
package fingerprint

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/yuya-takeyama/strict-dir-sync/internal/checksum"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/syncerr"
)

// Mode selects how files are compared within one run.
type Mode int

const (
	// Accurate fingerprints every file by its SHA-256 content hash.
	Accurate Mode = iota
	// Hybrid fingerprints by size and whole-second mtime, and falls back to
	// content hashing only when those differ.
	Hybrid
)

var modeToString = map[Mode]string{Accurate: "accurate", Hybrid: "hybrid"}

func (m Mode) String() string {
	if s, ok := modeToString[m]; ok {
		return s
	}
	return fmt.Sprintf("unknown_mode(%d)", int(m))
}

// ParseMode parses "accurate" or "hybrid".
func ParseMode(s string) (Mode, error) {
	for m, name := range modeToString {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("invalid comparison mode: %q. Must be 'accurate' or 'hybrid'", s)
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("Mode should be a string, got %s", data)
	}
	mode, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Kind tags which half of a Fingerprint is populated.
type Kind uint8

const (
	KindExactHash Kind = iota + 1
	KindQuickStat
)

// Fingerprint is a tagged value: either an exact content digest or a
// (size, mtime seconds) pair.
type Fingerprint struct {
	Kind    Kind
	Digest  string // KindExactHash
	Size    int64  // KindQuickStat
	ModTime int64  // KindQuickStat, unix seconds
}

// ExactHash returns a KindExactHash fingerprint.
func ExactHash(digest string) Fingerprint {
	return Fingerprint{Kind: KindExactHash, Digest: digest}
}

// QuickStat returns a KindQuickStat fingerprint. Sub-second precision of
// modTime is dropped.
func QuickStat(size int64, modTime time.Time) Fingerprint {
	return Fingerprint{Kind: KindQuickStat, Size: size, ModTime: modTime.Unix()}
}

// Equal compares two fingerprints of the same kind. Fingerprints of
// different kinds never compare equal.
func (f Fingerprint) Equal(other Fingerprint) bool {
	if f.Kind != other.Kind {
		return false
	}
	switch f.Kind {
	case KindExactHash:
		return checksum.CompareChecksums(f.Digest, other.Digest)
	case KindQuickStat:
		return f.Size == other.Size && f.ModTime == other.ModTime
	default:
		return false
	}
}

func (f Fingerprint) String() string {
	switch f.Kind {
	case KindExactHash:
		return "sha256:" + f.Digest
	case KindQuickStat:
		return fmt.Sprintf("stat:%d@%d", f.Size, f.ModTime)
	default:
		return "invalid"
	}
}

// Compute fingerprints the file at path. Failures are reported as
// syncerr.KindScanRead so callers can skip the file and keep going.
func Compute(path string, mode Mode) (Fingerprint, error) {
	switch mode {
	case Accurate:
		digest, err := checksum.CalculateFileSHA256(path)
		if err != nil {
			return Fingerprint{}, syncerr.New(syncerr.KindScanRead, "hash", path, err)
		}
		return ExactHash(digest), nil
	case Hybrid:
		info, err := os.Stat(path)
		if err != nil {
			return Fingerprint{}, syncerr.New(syncerr.KindScanRead, "stat", path, err)
		}
		return QuickStat(info.Size(), info.ModTime()), nil
	default:
		return Fingerprint{}, fmt.Errorf("unknown comparison mode: %v", mode)
	}
}
