// Package comment defines the comment model.
package comment

import "time"

// Comment is attached to a post. Likes is a set of identity ids kept in
// insertion order; NumberOfLikes mirrors len(Likes).
type Comment struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	PostID        string    `json:"postId"`
	AuthorID      string    `json:"userId"`
	Likes         []string  `json:"likes"`
	NumberOfLikes int       `json:"numberOfLikes"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Liked reports whether the identity already likes the comment.
func (c *Comment) Liked(identityID string) bool {
	for _, id := range c.Likes {
		if id == identityID {
			return true
		}
	}
	return false
}
