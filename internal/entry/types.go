package entry

import (
	"fmt"
	"strings"
	"time"
)

// MinUpdateIntervalMinutes is the shortest accepted poll interval.
const MinUpdateIntervalMinutes = 1

// DefaultUpdateIntervalMinutes is used when seeding without an interval.
const DefaultUpdateIntervalMinutes = 5

// Entry is the stored configuration for one Beestat account.
type Entry struct {
	ID                    string
	APIKey                string
	UpdateIntervalMinutes int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// UpdateInterval returns the poll interval as a Duration.
func (e *Entry) UpdateInterval() time.Duration {
	return time.Duration(e.UpdateIntervalMinutes) * time.Minute
}

// View is the entry as exposed over the API. The key is never included.
type View struct {
	ID                    string    `json:"id"`
	APIKeySet             bool      `json:"api_key_set"`
	APIKeyHint            string    `json:"api_key_hint,omitempty"`
	UpdateIntervalMinutes int       `json:"update_interval_minutes"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// View returns a redacted copy safe to serialise.
func (e *Entry) View() View {
	return View{
		ID:                    e.ID,
		APIKeySet:             e.APIKey != "",
		APIKeyHint:            keyHint(e.APIKey),
		UpdateIntervalMinutes: e.UpdateIntervalMinutes,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

// keyHint shows the last four characters of long keys only.
func keyHint(key string) string {
	if len(key) <= 8 {
		return ""
	}
	return "…" + key[len(key)-4:]
}

// ValidateInterval checks minutes against MinUpdateIntervalMinutes.
func ValidateInterval(minutes int) error {
	if minutes < MinUpdateIntervalMinutes {
		return fmt.Errorf("%w: got %d", ErrInvalidInterval, minutes)
	}
	return nil
}

// NormalizeAPIKey trims surrounding whitespace and rejects empty keys.
func NormalizeAPIKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyAPIKey
	}
	return key, nil
}
