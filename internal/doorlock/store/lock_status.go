package store

import (
	"fmt"
	"strings"
)

// LockStatus is the two-valued door state. The zero value is invalid so an
// unset field can never be mistaken for UNLOCKED.
type LockStatus int

const (
	StatusUnlocked LockStatus = iota + 1
	StatusLocked
)

// StatusFromBool maps the wire boolean (true = locked) to a LockStatus.
func StatusFromBool(locked bool) LockStatus {
	if locked {
		return StatusLocked
	}
	return StatusUnlocked
}

func (s LockStatus) Valid() bool {
	return s == StatusUnlocked || s == StatusLocked
}

func (s LockStatus) Locked() bool { return s == StatusLocked }

func (s LockStatus) String() string {
	switch s {
	case StatusLocked:
		return "LOCKED"
	case StatusUnlocked:
		return "UNLOCKED"
	default:
		return fmt.Sprintf("LockStatus(%d)", int(s))
	}
}

// Label is the human form used in the text history log.
func (s LockStatus) Label() string {
	if s == StatusLocked {
		return "Locked"
	}
	return "Unlocked"
}

func (s LockStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid lock status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *LockStatus) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "LOCKED":
		*s = StatusLocked
	case "UNLOCKED":
		*s = StatusUnlocked
	default:
		return fmt.Errorf("invalid lock status %q", string(b))
	}
	return nil
}
