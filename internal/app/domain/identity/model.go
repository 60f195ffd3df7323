// Package identity defines the registered user/admin account model.
package identity

import "time"

// DefaultProfileImage is assigned when a signup carries no avatar.
const DefaultProfileImage = "https://www.pngall.com/wp-content/uploads/5/Profile-Avatar-PNG.png"

// Identity is a registered account. PasswordHash never crosses the wire.
type Identity struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfileImage string    `json:"profileImage,omitempty"`
	IsAdmin      bool      `json:"isAdmin"`
	PostIDs      []string  `json:"posts"`
	CommentIDs   []string  `json:"comments"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
