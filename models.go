package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profile is the application-owned extension of an Identity, keyed 1:1 by
// the identity id. Profiles are seeded at registration and fetched after
// sign-in; this package never creates one on its own.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,unique" json:"username,omitempty"`
	FullName      string     `bun:"full_name" json:"full_name,omitempty"`
	AvatarURL     string     `bun:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// ProfileUpdate carries the mutable subset of a Profile. Nil fields are
// left untouched.
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty"`
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// IsZero reports whether the update would change nothing.
func (p ProfileUpdate) IsZero() bool {
	return p.Username == nil && p.FullName == nil && p.AvatarURL == nil
}
