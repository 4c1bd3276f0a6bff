// Package models - forum_post.go defines the ForumPost model for user-generated
// discussion posts subject to admin moderation.
package models

import "time"

// Moderation status values for forum posts. Posts are created approved and
// enter pending only when flagged by content filters; moderation transitions
// a post to approved or rejected, never back to pending.
const (
	ForumStatusPending  = "pending"
	ForumStatusApproved = "approved"
	ForumStatusRejected = "rejected"
)

// ForumPost represents a forum post with its moderation state.
//
// ModeratedBy and ModeratedAt are set if and only if the post has been through
// the moderation handler at least once; a freshly created post carries nil in
// both regardless of status.
type ForumPost struct {
	ID               string     `json:"id"`
	AuthorID         string     `json:"author_id"`
	Title            string     `json:"title"`
	Body             string     `json:"body"`
	Status           string     `json:"status"`
	FlaggedReason    *string    `json:"flagged_reason,omitempty"`
	ModeratedBy      *string    `json:"moderated_by,omitempty"`
	ModeratedAt      *time.Time `json:"moderated_at,omitempty"`
	ModerationReason *string    `json:"moderation_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	// Joined fields (not stored in forum_posts table)
	AuthorName *string `json:"author_name,omitempty"`
}

// ValidModerationTarget returns true if status is a state a moderator may
// transition a post into. Pending is excluded: a post cannot be moderated back
// into the unmoderated state.
func ValidModerationTarget(status string) bool {
	return status == ForumStatusApproved || status == ForumStatusRejected
}

// ValidForumStatus returns true for any recognised post status, including
// pending. Used by list filters, not by the moderation handler.
func ValidForumStatus(status string) bool {
	return status == ForumStatusPending || ValidModerationTarget(status)
}
