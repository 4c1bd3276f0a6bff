// forum_repository.go implements ForumRepository, providing database queries for forum
// posts and the moderation status transition.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/edustack/edustack/internal/db/models"
	"github.com/google/uuid"
)

// ForumRepository handles forum post database operations
type ForumRepository struct {
	db *sql.DB
}

// NewForumRepository creates a new ForumRepository
func NewForumRepository(db *sql.DB) *ForumRepository {
	return &ForumRepository{db: db}
}

// CreatePost creates a new forum post. Status defaults to approved unless the
// caller sets it (content-creation flows set pending when a post is flagged).
func (r *ForumRepository) CreatePost(ctx context.Context, post *models.ForumPost) error {
	post.ID = uuid.New().String()
	post.CreatedAt = time.Now()
	post.UpdatedAt = time.Now()
	if post.Status == "" {
		post.Status = models.ForumStatusApproved
	}

	query := `
		INSERT INTO forum_posts (id, author_id, title, body, status, flagged_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		post.ID,
		post.AuthorID,
		post.Title,
		post.Body,
		post.Status,
		post.FlaggedReason,
		post.CreatedAt,
		post.UpdatedAt,
	)

	return err
}

// GetPostByID retrieves a forum post by ID, including the author's name
func (r *ForumRepository) GetPostByID(ctx context.Context, postID string) (*models.ForumPost, error) {
	query := `
		SELECT p.id, p.author_id, p.title, p.body, p.status, p.flagged_reason,
		       p.moderated_by, p.moderated_at, p.moderation_reason,
		       p.created_at, p.updated_at, u.name
		FROM forum_posts p
		LEFT JOIN users u ON u.id = p.author_id
		WHERE p.id = $1
	`

	post := &models.ForumPost{}
	err := r.db.QueryRowContext(ctx, query, postID).Scan(
		&post.ID,
		&post.AuthorID,
		&post.Title,
		&post.Body,
		&post.Status,
		&post.FlaggedReason,
		&post.ModeratedBy,
		&post.ModeratedAt,
		&post.ModerationReason,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.AuthorName,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return post, nil
}

// ListPostsByStatus retrieves forum posts filtered by moderation status,
// oldest first so the moderation queue is worked in arrival order.
func (r *ForumRepository) ListPostsByStatus(ctx context.Context, status string, limit, offset int) ([]*models.ForumPost, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM forum_posts WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT p.id, p.author_id, p.title, p.body, p.status, p.flagged_reason,
		       p.moderated_by, p.moderated_at, p.moderation_reason,
		       p.created_at, p.updated_at, u.name
		FROM forum_posts p
		LEFT JOIN users u ON u.id = p.author_id
		WHERE p.status = $1
		ORDER BY p.created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := make([]*models.ForumPost, 0)
	for rows.Next() {
		post := &models.ForumPost{}
		err := rows.Scan(
			&post.ID,
			&post.AuthorID,
			&post.Title,
			&post.Body,
			&post.Status,
			&post.FlaggedReason,
			&post.ModeratedBy,
			&post.ModeratedAt,
			&post.ModerationReason,
			&post.CreatedAt,
			&post.UpdatedAt,
			&post.AuthorName,
		)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}

	return posts, total, rows.Err()
}

// CountPostsByStatus returns the number of posts currently in the given status.
func (r *ForumRepository) CountPostsByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM forum_posts WHERE status = $1`, status).Scan(&count)
	return count, err
}

// Moderate transitions a post's moderation state in a single UPDATE, recording
// the moderator identity, decision time, and optional reason. It returns the
// updated post, or (nil, nil) if the post does not exist.
//
// The current status is deliberately not checked: approved→rejected and
// rejected→approved re-transitions are permitted so an admin can always
// override an earlier decision.
func (r *ForumRepository) Moderate(ctx context.Context, postID, newStatus, moderatorID string, reason *string) (*models.ForumPost, error) {
	now := time.Now()

	query := `
		UPDATE forum_posts
		SET status = $2, moderated_by = $3, moderated_at = $4, moderation_reason = $5, updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, postID, newStatus, moderatorID, now, reason)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}

	return r.GetPostByID(ctx, postID)
}

// DeletePost removes a forum post entirely
func (r *ForumRepository) DeletePost(ctx context.Context, postID string) error {
	query := `DELETE FROM forum_posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, postID)
	return err
}
