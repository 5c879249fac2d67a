package router

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/duzagac/village-backend/admin"
	"github.com/duzagac/village-backend/common"
	"github.com/duzagac/village-backend/config"
	"github.com/duzagac/village-backend/db"
	"github.com/duzagac/village-backend/identity"
	"github.com/duzagac/village-backend/linelog"
	"github.com/duzagac/village-backend/log"
	"github.com/duzagac/village-backend/weather"
)

const (
	LoginPath = "/yonetici"
	PanelPath = "/panel"

	homeTopN        = 3
	photoPageLimit  = 80
	videoPageLimit  = 50
	commentsPerPost = 50
	panelComments   = 200
)

// Engagement is the like and comment store the routes read and write.
type Engagement interface {
	LikeCount(ctx context.Context, postID string) (int, error)
	HasLiked(ctx context.Context, postID, deviceID string) (bool, error)
	AddLike(ctx context.Context, postID, deviceID, nameFull string) (db.LikeResult, error)
	ListComments(ctx context.Context, postID string) ([]*db.Comment, error)
	RecentComments(ctx context.Context, limit int) ([]*db.Comment, error)
	AddComment(ctx context.Context, postID, deviceID, nameFull, text string) error
	DeleteComment(ctx context.Context, id int64) error
	DeletePostEngagement(ctx context.Context, postID string) (int64, error)
}

// Site bundles everything the routes need.
type Site struct {
	Store         Engagement
	PhotosDir     string
	VideosDir     string
	StaticDir     string
	Announcements *linelog.Log
	Contact       *linelog.Log
	Gate          *admin.Gate
	Weather       *weather.Cache
	Socials       config.Socials
	OrphanPolicy  string
}

type RouterContext struct {
	site     *Site
	deviceid string
	isAdmin  bool
}

type HTTPError struct {
	Level     int    `json:"-"`
	IError    error  `json:"-"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

type Handler func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError

func Handle(site *Site, handlers ...Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		rc := &RouterContext{
			site:     site,
			deviceid: identity.FromContext(r.Context()),
		}

		for _, handler := range handlers {
			e := handler(rc, w, r)
			if e != nil {

				// 3 Levels of errors
				// Level 1: Don't log anything on server, Only return a response to the user
				// Level 2: Log the error as warning on the server, But don't send a response or close the request
				// Level 3: Log the request, Cancel the request from going any further and return an appropriate response
				switch e.Level {
				case 1:
					writeError(w, e)
					return

				case 2:
					log.Warn.Printf("%s %s: %v\n", r.Method, r.URL.Path, e.IError)

				case 3:
					log.Error.Printf("%s %s: %v\n", r.Method, r.URL.Path, e.IError)
					writeError(w, e)
					return
				}
			}
		}
	})
}

func writeError(w http.ResponseWriter, e *HTTPError) {
	if e.Error == "" {
		e.Error = http.StatusText(e.Status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	if err := json.NewEncoder(w).Encode(e); err != nil {
		log.Error.Printf("%v: %s\n", err, err)
	}
}

// Init wires every route. The returned handler also resolves the device cookie and logs requests.
func Init(site *Site) http.Handler {
	r := mux.NewRouter()

	notFound := Handle(site, routeNotFound())
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notFound

	r.Handle("/", Handle(site, checkAdmin(), Home())).Methods("GET")
	r.Handle("/fotograflar", Handle(site, checkAdmin(), Photos())).Methods("GET")
	r.Handle("/videolar", Handle(site, checkAdmin(), Videos())).Methods("GET")
	r.Handle("/duyuru", Handle(site, checkAdmin(), Announcements())).Methods("GET")
	r.Handle("/iletisim", Handle(site, checkAdmin(), Contact())).Methods("GET")

	r.Handle("/like", Handle(site, parseForm(), LikePost())).Methods("POST")
	r.Handle("/comment", Handle(site, parseForm(), SubmitComment())).Methods("POST")

	r.Handle(LoginPath, Handle(site, LoginPage())).Methods("GET")
	r.Handle(LoginPath, Handle(site, parseForm(), Login())).Methods("POST")
	r.Handle("/cikis", Handle(site, Logout())).Methods("GET")

	r.Handle(PanelPath, Handle(site, requireAdmin(), Panel())).Methods("GET")
	r.Handle("/admin/add_announcement", Handle(site, requireAdmin(), parseForm(), AddAnnouncement())).Methods("POST")
	r.Handle("/admin/delete_comment", Handle(site, requireAdmin(), parseForm(), DeleteComment())).Methods("POST")
	r.Handle("/admin/delete_photo", Handle(site, requireAdmin(), parseForm(), DeletePhoto())).Methods("POST")
	r.Handle("/admin/delete_video", Handle(site, requireAdmin(), parseForm(), DeleteVideo())).Methods("POST")
	r.Handle("/admin/delete_announcement", Handle(site, requireAdmin(), parseForm(), DeleteAnnouncement())).Methods("POST")

	if site.StaticDir != "" {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(filesOnly{http.Dir(site.StaticDir)}))).Methods("GET", "HEAD")
	}

	return logRequests(identity.Middleware(r))
}

func routeNotFound() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		return notFoundError(nil)
	}
}

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info.Printf("%s %s %s %d %s", r.Method, r.URL.Path, common.GetIPAddr(r), rec.status, time.Since(start).Round(time.Millisecond))
	})
}

// filesOnly hides directory listings under /static.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}
