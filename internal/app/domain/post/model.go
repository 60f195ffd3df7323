// Package post defines the blog post model.
package post

import "time"

const (
	// DefaultCategory is used when a post is created without one.
	DefaultCategory = "General"
	// DefaultImage is the placeholder cover image.
	DefaultImage = "https://contenthub-static.grammarly.com/blog/wp-content/uploads/2017/11/how-to-write-a-blog-post.jpeg"
)

// Post is an article. Title and Slug are globally unique; Slug is derived
// from Title on every create and update.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Image      string    `json:"image"`
	AuthorID   string    `json:"author"`
	CommentIDs []string  `json:"comments"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
