package models

import (
	"encoding/json"
	"time"
)

// MagicToken is a single-use login token delivered out of band (email or
// SMS) as a deep link. Consumption is enforced with a conditional update on
// the used column, never a read followed by a write.
type MagicToken struct {
	ID        string          `json:"id" db:"id"`
	Email     string          `json:"email" db:"email"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	ExpiresAt time.Time       `json:"expires_at" db:"expires_at"`
	Used      bool            `json:"used" db:"used"`
	UsedAt    *time.Time      `json:"used_at,omitempty" db:"used_at"`
	TargetApp *string         `json:"target_app,omitempty" db:"target_app"`
	PageID    *string         `json:"page_id,omitempty" db:"page_id"`
	Variables json.RawMessage `json:"variables,omitempty" db:"variables"`
}

// Routing returns the deep-link routing metadata carried on the token,
// or nil when the token has none.
func (t *MagicToken) Routing() *Routing {
	if t.TargetApp == nil && t.PageID == nil && len(t.Variables) == 0 {
		return nil
	}
	r := &Routing{}
	if t.TargetApp != nil {
		r.App = *t.TargetApp
	}
	if t.PageID != nil {
		r.PageID = *t.PageID
	}
	if len(t.Variables) > 0 {
		// Variables were validated at issuance; a decode failure here
		// just drops them from the response.
		_ = json.Unmarshal(t.Variables, &r.Variables)
	}
	return r
}
