package item

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/nas/track-learning/internal/errors"
)

// EditUpdate is a partial update produced by the edit parser.
// Only fields the user asked to change are set. ClearURL removes the link.
type EditUpdate struct {
	Status   *Status
	Progress *string
	URL      *string
	ClearURL bool
}

// Keys returns the names of the fields the update touches.
func (u EditUpdate) Keys() []string {
	keys := make([]string, 0, 3)
	if u.Status != nil {
		keys = append(keys, "status")
	}
	if u.Progress != nil {
		keys = append(keys, "progress")
	}
	if u.URL != nil || u.ClearURL {
		keys = append(keys, "url")
	}
	return keys
}

// Empty reports whether the update changes nothing.
func (u EditUpdate) Empty() bool {
	return len(u.Keys()) == 0
}

// Validate checks the update against the item schema.
func (u EditUpdate) Validate() error {
	if u.Empty() {
		return errors.NewNoUpdates()
	}
	if u.Status != nil && !u.Status.Valid() {
		return errors.NewValidation("status", "Invalid status: "+string(*u.Status))
	}
	if u.Progress != nil && strings.TrimSpace(*u.Progress) == "" {
		return errors.NewValidation("progress", "Progress is required")
	}
	if u.URL != nil && strings.TrimSpace(*u.URL) == "" {
		return errors.NewValidation("url", "URL must not be empty")
	}
	return nil
}

// ApplyTo merges the update into it and stamps LastUpdated.
func (u EditUpdate) ApplyTo(it *Item, now time.Time) {
	if u.Status != nil {
		it.Status = *u.Status
	}
	if u.Progress != nil {
		it.Progress = *u.Progress
	}
	if u.ClearURL {
		it.URL = nil
	} else if u.URL != nil {
		url := *u.URL
		it.URL = &url
	}
	it.LastUpdated = FormatTime(now)
}

// MarshalJSON emits only present keys; a cleared url is written as null.
func (u EditUpdate) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3)
	if u.Status != nil {
		out["status"] = *u.Status
	}
	if u.Progress != nil {
		out["progress"] = *u.Progress
	}
	if u.ClearURL {
		out["url"] = nil
	} else if u.URL != nil {
		out["url"] = *u.URL
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts {status?, progress?, url?}. A blank progress is absent;
// url null or blank means clear.
func (u *EditUpdate) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = EditUpdate{}

	if v, ok := raw["status"]; ok && !isNull(v) {
		var s Status
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		u.Status = &s
	}
	if v, ok := raw["progress"]; ok && !isNull(v) {
		var p string
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		if p = strings.TrimSpace(p); p != "" {
			u.Progress = &p
		}
	}
	if v, ok := raw["url"]; ok {
		if isNull(v) {
			u.ClearURL = true
			return nil
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		if cleaned := CleanURL(&s); cleaned != nil {
			u.URL = cleaned
		} else {
			u.ClearURL = true
		}
	}
	return nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
