package domain

import "time"

// PersistedGrant is an authorization artifact stored by the protocol engine:
// refresh tokens, reference tokens, authorization codes and consents.
type PersistedGrant struct {
	Key          string     `gorm:"primaryKey;size:200" json:"key"`
	Type         string     `gorm:"size:50;not null;index:idx_persisted_grants_subject,priority:2" json:"type"`
	SubjectID    string     `gorm:"size:200;index:idx_persisted_grants_subject,priority:1" json:"subject_id"`
	SessionID    string     `gorm:"size:100;index" json:"session_id,omitempty"`
	ClientID     string     `gorm:"size:200;not null" json:"client_id"`
	Description  string     `gorm:"size:200" json:"description,omitempty"`
	CreationTime time.Time  `gorm:"not null" json:"creation_time"`
	Expiration   *time.Time `gorm:"index" json:"expiration,omitempty"`
	ConsumedTime *time.Time `json:"consumed_time,omitempty"`
	Data         string     `gorm:"type:text;not null" json:"-"`
}

func (PersistedGrant) TableName() string { return "persisted_grants" }

// Expired reports whether the grant has an expiration at or before now.
func (g PersistedGrant) Expired(now time.Time) bool {
	return g.Expiration != nil && !g.Expiration.After(now)
}

// Filter narrows grant queries. At least one field must be set.
type Filter struct {
	SubjectID string
	SessionID string
	ClientID  string
	ClientIDs []string
	Type      string
	Types     []string
}

// Empty reports whether no criterion is set.
func (f Filter) Empty() bool {
	return f.SubjectID == "" &&
		f.SessionID == "" &&
		f.ClientID == "" &&
		len(f.ClientIDs) == 0 &&
		f.Type == "" &&
		len(f.Types) == 0
}
