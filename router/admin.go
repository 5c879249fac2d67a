package router

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/duzagac/village-backend/admin"
	"github.com/duzagac/village-backend/common"
	"github.com/duzagac/village-backend/config"
	"github.com/duzagac/village-backend/log"
	"github.com/duzagac/village-backend/media"
)

// LoginPage exists only when an admin key is configured.
func LoginPage() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		if rc.site.Gate == nil || !rc.site.Gate.Enabled() {
			return notFoundError(admin.ErrDisabled)
		}
		return writeJSON(w, &OkResponse{Status: OK})
	}
}

// Login checks admin_password and hands out the session cookie.
func Login() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		if rc.site.Gate == nil {
			return notFoundError(admin.ErrDisabled)
		}
		token, exp, err := rc.site.Gate.Login(strings.TrimSpace(r.Form.Get("admin_password")))
		switch {
		case errors.Is(err, admin.ErrDisabled):
			return notFoundError(err)
		case errors.Is(err, admin.ErrWrongPassword):
			return &HTTPError{
				IError:    err,
				Level:     1,
				Status:    http.StatusUnauthorized,
				Error:     "Şifre yanlış",
				ErrorCode: ErrWrongPassword,
			}
		case err != nil:
			return handleInternalError(err)
		}
		http.SetCookie(w, admin.Cookie(token, exp))
		return redirect(w, r, PanelPath)
	}
}

// Logout revokes the session and clears the cookie.
func Logout() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		if rc.site.Gate != nil {
			if err := rc.site.Gate.Logout(r.Context(), admin.TokenFrom(r)); err != nil {
				log.Warn.Printf("logout: %v", err)
			}
		}
		http.SetCookie(w, admin.ClearCookie())
		return redirect(w, r, "/")
	}
}

// Panel lists everything an admin can moderate.
func Panel() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		site := rc.site
		comments, err := site.Store.RecentComments(r.Context(), panelComments)
		if err != nil {
			return handleInternalError(err)
		}
		videos, err := media.List(site.VideosDir, media.VideoExts)
		if err != nil {
			return handleInternalError(err)
		}
		photos, err := media.List(site.PhotosDir, media.PhotoExts)
		if err != nil {
			return handleInternalError(err)
		}
		anns, err := site.Announcements.Newest()
		if err != nil {
			return handleInternalError(err)
		}

		resp := &PanelResponse{
			Comments:      make([]*PanelComment, 0, len(comments)),
			Videos:        filenames(videos, -1),
			Photos:        filenames(photos, -1),
			Announcements: make([]*PanelAnnouncement, 0, len(anns)),
			OrphanPolicy:  site.OrphanPolicy,
		}
		for _, c := range comments {
			resp.Comments = append(resp.Comments, &PanelComment{
				CommentView: CommentView{
					ID:        c.ID,
					FirstName: common.FirstName(c.NameFull),
					Date:      common.FormatDate(c.CreatedAt),
					Text:      c.Text,
				},
				PostID: c.PostID,
			})
		}
		for i, text := range anns {
			resp.Announcements = append(resp.Announcements, &PanelAnnouncement{ReverseIndex: i, Text: text})
		}
		return writeJSON(w, resp)
	}
}

// AddAnnouncement appends a notice; existing notices stay.
func AddAnnouncement() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		if err := rc.site.Announcements.Append(r.Form.Get("text")); err != nil {
			return handleInternalError(err)
		}
		return redirect(w, r, PanelPath)
	}
}

// DeleteComment removes one comment by id. A malformed id is ignored.
func DeleteComment() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		id, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("comment_id")), 10, 64)
		if err != nil {
			return redirect(w, r, PanelPath)
		}
		if err := rc.site.Store.DeleteComment(r.Context(), id); err != nil {
			return handleInternalError(err)
		}
		return redirect(w, r, PanelPath)
	}
}

func DeletePhoto() Handler {
	return deleteMedia(media.Photo, func(s *Site) string { return s.PhotosDir })
}

func DeleteVideo() Handler {
	return deleteMedia(media.Video, func(s *Site) string { return s.VideosDir })
}

// deleteMedia removes the file and, under the purge policy, its likes and comments.
func deleteMedia(kind media.Kind, dir func(*Site) string) Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		filename := media.SafeName(r.Form.Get("filename"))
		removed, err := media.Delete(dir(rc.site), kind, filename)
		if err != nil {
			return handleInternalError(err)
		}
		if removed && rc.site.OrphanPolicy == config.OrphanPurge {
			postID := media.PostID(kind, filename)
			n, err := rc.site.Store.DeletePostEngagement(r.Context(), postID)
			if err != nil {
				return handleInternalError(err)
			}
			log.Info.Printf("purged %d engagement rows of %s", n, postID)
		}
		return redirect(w, r, PanelPath)
	}
}

// DeleteAnnouncement removes the notice at reverse_index of the newest-first list.
func DeleteAnnouncement() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		idx, err := strconv.Atoi(strings.TrimSpace(r.Form.Get("reverse_index")))
		if err != nil {
			return redirect(w, r, PanelPath)
		}
		if _, err := rc.site.Announcements.DeleteNewest(idx); err != nil {
			return handleInternalError(err)
		}
		return redirect(w, r, PanelPath)
	}
}
