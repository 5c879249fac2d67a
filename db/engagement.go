package db

import (
	"context"
	"database/sql"
	"errors"
)

// LikeCount returns the number of devices that liked postID.
func (d *DB) LikeCount(ctx context.Context, postID string) (int, error) {
	var n int
	err := d.Db.QueryRowContext(ctx, d.rebind("SELECT COUNT(*) FROM likes WHERE post_id = ?"), postID).Scan(&n)
	if err != nil {
		return 0, storageErr("count likes", err)
	}
	return n, nil
}

// HasLiked reports whether deviceID already liked postID.
func (d *DB) HasLiked(ctx context.Context, postID, deviceID string) (bool, error) {
	var one int
	err := d.Db.QueryRowContext(ctx,
		d.rebind("SELECT 1 FROM likes WHERE post_id = ? AND device_id = ? LIMIT 1"),
		postID, deviceID,
	).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, storageErr("check like", err)
	}
	return true, nil
}

// AddLike inserts the like of deviceID on postID. The primary key on (post_id, device_id) decides
// duplicates, so two concurrent first likes still leave a single row; the loser gets
// LikeAlreadyExists and the stored row is left as it was.
func (d *DB) AddLike(ctx context.Context, postID, deviceID, nameFull string) (LikeResult, error) {
	_, err := d.Db.ExecContext(ctx,
		d.rebind("INSERT INTO likes (post_id, device_id, name_full, created_at) VALUES (?, ?, ?, ?)"),
		postID, deviceID, nameFull, d.timestamp(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return LikeAlreadyExists, nil
		}
		return 0, storageErr("add like", err)
	}
	return LikeInserted, nil
}

// ListComments returns every comment on postID, newest first.
func (d *DB) ListComments(ctx context.Context, postID string) ([]*Comment, error) {
	rows, err := d.Db.QueryContext(ctx,
		d.rebind("SELECT id, post_id, device_id, name_full, comment, created_at FROM comments WHERE post_id = ? ORDER BY id DESC"),
		postID,
	)
	if err != nil {
		return nil, storageErr("list comments", err)
	}
	return scanComments(rows)
}

// RecentComments returns the latest limit comments across all posts, newest first.
func (d *DB) RecentComments(ctx context.Context, limit int) ([]*Comment, error) {
	rows, err := d.Db.QueryContext(ctx,
		d.rebind("SELECT id, post_id, device_id, name_full, comment, created_at FROM comments ORDER BY id DESC LIMIT ?"),
		limit,
	)
	if err != nil {
		return nil, storageErr("recent comments", err)
	}
	return scanComments(rows)
}

func scanComments(rows *sql.Rows) ([]*Comment, error) {
	defer rows.Close()
	comments := []*Comment{}
	for rows.Next() {
		c := &Comment{}
		if err := rows.Scan(&c.ID, &c.PostID, &c.DeviceID, &c.NameFull, &c.Text, &c.CreatedAt); err != nil {
			return nil, storageErr("scan comment", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate comments", err)
	}
	return comments, nil
}

// AddComment stores a comment as given. Length limits belong to the caller.
func (d *DB) AddComment(ctx context.Context, postID, deviceID, nameFull, text string) error {
	_, err := d.Db.ExecContext(ctx,
		d.rebind("INSERT INTO comments (post_id, device_id, name_full, comment, created_at) VALUES (?, ?, ?, ?, ?)"),
		postID, deviceID, nameFull, text, d.timestamp(),
	)
	if err != nil {
		return storageErr("add comment", err)
	}
	return nil
}

// DeleteComment removes comment id. A missing id is not an error.
func (d *DB) DeleteComment(ctx context.Context, id int64) error {
	if _, err := d.Db.ExecContext(ctx, d.rebind("DELETE FROM comments WHERE id = ?"), id); err != nil {
		return storageErr("delete comment", err)
	}
	return nil
}

// DeletePostEngagement removes all likes and comments of postID and returns how many rows went.
func (d *DB) DeletePostEngagement(ctx context.Context, postID string) (int64, error) {
	tx, err := d.Db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin purge", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	for _, table := range []string{"likes", "comments"} {
		res, err := tx.ExecContext(ctx, d.rebind("DELETE FROM "+table+" WHERE post_id = ?"), postID)
		if err != nil {
			return 0, storageErr("purge "+table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, storageErr("purge "+table, err)
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit purge", err)
	}
	return total, nil
}

// PostIDs lists every post identifier that has at least one like or comment.
func (d *DB) PostIDs(ctx context.Context) ([]string, error) {
	rows, err := d.Db.QueryContext(ctx,
		"SELECT post_id FROM likes UNION SELECT post_id FROM comments ORDER BY post_id")
	if err != nil {
		return nil, storageErr("list post ids", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan post id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate post ids", err)
	}
	return ids, nil
}
