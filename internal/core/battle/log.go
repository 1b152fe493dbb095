package battle

import (
	"fmt"

	"github.com/google/uuid"
)

type LogKind uint8

const (
	LogInfo LogKind = iota
	LogDamage
	LogTurn
	LogDeath
)

func (k LogKind) String() string {
	switch k {
	case LogInfo:
		return "info"
	case LogDamage:
		return "damage"
	case LogTurn:
		return "turn"
	case LogDeath:
		return "death"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k LogKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *LogKind) UnmarshalText(text []byte) (err error) {
	*k, err = parseEnum("log kind", text, LogInfo, LogDamage, LogTurn, LogDeath)
	return err
}

// LogEntry is one line of the battle log shown to the player.
type LogEntry struct {
	ID      string  `json:"id"`
	Message string  `json:"message"`
	Kind    LogKind `json:"kind"`
}

func newLogEntry(kind LogKind, format string, args ...any) LogEntry {
	return LogEntry{ID: uuid.NewString(), Message: fmt.Sprintf(format, args...), Kind: kind}
}
