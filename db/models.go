package db

import "time"

// timeLayout is ISO-8601 to the second, without zone.
const timeLayout = "2006-01-02T15:04:05"

type Comment struct {
	ID        int64  `db:"id" json:"id"`
	PostID    string `db:"post_id" json:"post_id"`
	DeviceID  string `db:"device_id" json:"-"`
	NameFull  string `db:"name_full" json:"name_full"`
	Text      string `db:"comment" json:"comment"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// Created parses CreatedAt. It returns the zero time when the column holds something else.
func (c Comment) Created() time.Time {
	t, err := time.Parse(timeLayout, c.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LikeResult is the outcome of AddLike.
type LikeResult int

const (
	LikeInserted LikeResult = iota + 1
	LikeAlreadyExists
)

// Inserted is true only for the first like of a device on a post.
func (r LikeResult) Inserted() bool {
	return r == LikeInserted
}

func (r LikeResult) String() string {
	switch r {
	case LikeInserted:
		return "inserted"
	case LikeAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}
