package router

import (
	"context"
	"net/http"
	"net/url"

	"github.com/duzagac/village-backend/common"
	"github.com/duzagac/village-backend/media"
)

func (rc *RouterContext) page(r *http.Request, title string) *PageResponse {
	return &PageResponse{
		Title:   title,
		Path:    r.URL.Path,
		Admin:   rc.isAdmin,
		Socials: rc.site.Socials,
	}
}

// card collects likes, the device's own like and the latest comments of one media file.
func (rc *RouterContext) card(ctx context.Context, kind media.Kind, filename string) (*PostCard, error) {
	store := rc.site.Store
	postID := media.PostID(kind, filename)

	likes, err := store.LikeCount(ctx, postID)
	if err != nil {
		return nil, err
	}
	liked, err := store.HasLiked(ctx, postID, rc.deviceid)
	if err != nil {
		return nil, err
	}
	comments, err := store.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	if len(comments) > commentsPerPost {
		comments = comments[:commentsPerPost]
	}

	views := make([]*CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, &CommentView{
			ID:        c.ID,
			FirstName: common.FirstName(c.NameFull),
			Date:      common.FormatDate(c.CreatedAt),
			Text:      c.Text,
		})
	}

	folder := "fotograflar"
	if kind == media.Video {
		folder = "videolar"
	}
	return &PostCard{
		PostID:   postID,
		Kind:     string(kind),
		Filename: media.SafeName(filename),
		URL:      "/static/" + folder + "/" + url.PathEscape(media.SafeName(filename)),
		Likes:    likes,
		Liked:    liked,
		Comments: views,
	}, nil
}

func (rc *RouterContext) cards(ctx context.Context, kind media.Kind, filenames []string) ([]*PostCard, error) {
	out := make([]*PostCard, 0, len(filenames))
	for _, fn := range filenames {
		c, err := rc.card(ctx, kind, fn)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func filenames(items []media.Item, limit int) []string {
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Filename
	}
	return out
}

// Home serves the three most liked photos and the weather.
func Home() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		ctx := r.Context()

		photos, err := media.List(rc.site.PhotosDir, media.PhotoExts)
		if err != nil {
			return handleInternalError(err)
		}
		top, err := media.TopByLikes(ctx, rc.site.Store, media.Photo, photos, homeTopN)
		if err != nil {
			return handleInternalError(err)
		}
		names := make([]string, len(top))
		for i, t := range top {
			names[i] = t.Filename
		}

		resp := rc.page(r, "Ana Sayfa")
		if resp.Posts, err = rc.cards(ctx, media.Photo, names); err != nil {
			return handleInternalError(err)
		}
		if rc.site.Weather != nil {
			report := rc.site.Weather.Get(ctx)
			resp.Weather = &report
		}
		return writeJSON(w, resp)
	}
}

// Photos serves the newest photos.
func Photos() Handler {
	return gallery("Fotoğraflar", media.Photo, func(s *Site) string { return s.PhotosDir }, photoPageLimit)
}

// Videos serves the newest videos.
func Videos() Handler {
	return gallery("Videolar", media.Video, func(s *Site) string { return s.VideosDir }, videoPageLimit)
}

func gallery(title string, kind media.Kind, dir func(*Site) string, limit int) Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		items, err := media.List(dir(rc.site), kind.Exts())
		if err != nil {
			return handleInternalError(err)
		}
		resp := rc.page(r, title)
		if resp.Posts, err = rc.cards(r.Context(), kind, filenames(items, limit)); err != nil {
			return handleInternalError(err)
		}
		return writeJSON(w, resp)
	}
}

// Announcements serves the notices newest first.
func Announcements() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		lines, err := rc.site.Announcements.Newest()
		if err != nil {
			return handleInternalError(err)
		}
		resp := rc.page(r, "Duyuru")
		resp.Lines = lines
		return writeJSON(w, resp)
	}
}

// Contact serves the contact lines in file order.
func Contact() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		lines, err := rc.site.Contact.ReadLines()
		if err != nil {
			return handleInternalError(err)
		}
		resp := rc.page(r, "İletişim")
		resp.Lines = lines
		return writeJSON(w, resp)
	}
}

// LikePost records the device's like and sends the browser back. Missing fields drop silently.
func LikePost() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		next := nextURL(r)
		kind, filename, err := media.ParsePostID(formValue(r, "post_id"))
		name := formValue(r, "name_full")
		if err != nil || name == "" {
			return redirect(w, r, next)
		}

		if _, err := rc.site.Store.AddLike(r.Context(), media.PostID(kind, filename), rc.deviceid, name); err != nil {
			return handleInternalError(err)
		}
		return redirect(w, r, next)
	}
}

// SubmitComment stores a comment cut to 250 characters and sends the browser back.
func SubmitComment() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		next := nextURL(r)
		kind, filename, err := media.ParsePostID(formValue(r, "post_id"))
		name := formValue(r, "name_full")
		text := textValue(r, "comment")
		if err != nil || name == "" || text == "" {
			return redirect(w, r, next)
		}
		text = common.Truncate(text, common.MaxCommentRunes)

		if err := rc.site.Store.AddComment(r.Context(), media.PostID(kind, filename), rc.deviceid, name, text); err != nil {
			return handleInternalError(err)
		}
		return redirect(w, r, next)
	}
}
