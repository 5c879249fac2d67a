package router

import (
	"github.com/duzagac/village-backend/config"
	"github.com/duzagac/village-backend/weather"
)

var OK = "OK"

type OkResponse struct {
	Status string `json:"status"`
}

// CommentView is a comment as shown under a post: first name and short date only.
type CommentView struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Date      string `json:"date"`
	Text      string `json:"comment"`
}

// PostCard is one photo or video with its engagement.
type PostCard struct {
	PostID   string         `json:"post_id"`
	Kind     string         `json:"kind"`
	Filename string         `json:"filename"`
	URL      string         `json:"url"`
	Likes    int            `json:"likes"`
	Liked    bool           `json:"liked"`
	Comments []*CommentView `json:"comments"`
}

// PageResponse is the body of every public page.
type PageResponse struct {
	Title   string          `json:"title"`
	Path    string          `json:"path"`
	Admin   bool            `json:"admin"`
	Socials config.Socials  `json:"socials"`
	Weather *weather.Report `json:"weather,omitempty"`
	Posts   []*PostCard     `json:"posts,omitempty"`
	Lines   []string        `json:"lines,omitempty"`
}

// PanelComment is a comment in the moderation panel.
type PanelComment struct {
	CommentView
	PostID string `json:"post_id"`
}

// PanelAnnouncement carries the index to send back for deletion.
type PanelAnnouncement struct {
	ReverseIndex int    `json:"reverse_index"`
	Text         string `json:"text"`
}

type PanelResponse struct {
	Comments      []*PanelComment      `json:"comments"`
	Videos        []string             `json:"videos"`
	Photos        []string             `json:"photos"`
	Announcements []*PanelAnnouncement `json:"announcements"`
	OrphanPolicy  string               `json:"orphan_policy"`
}
