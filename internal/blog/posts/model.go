package posts

import "time"

// Post represents a published or draft blog entry.
type Post struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Content    string    `json:"content"`
	AuthorID   int64     `json:"author_id"`
	CategoryID *int64    `json:"category_id,omitempty"`
	Tags       []string  `json:"tags"`
	Published  bool      `json:"published"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Revision is a snapshot of a post's content taken on every create and
// update, so edits can be audited and rolled back by hand.
type Revision struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	EditorID  int64     `json:"editor_id"`
	CreatedAt time.Time `json:"created_at"`
}
