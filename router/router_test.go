package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duzagac/village-backend/admin"
	"github.com/duzagac/village-backend/config"
	"github.com/duzagac/village-backend/db"
	"github.com/duzagac/village-backend/identity"
	"github.com/duzagac/village-backend/linelog"
	"github.com/duzagac/village-backend/log"
	"github.com/duzagac/village-backend/router"
	"github.com/duzagac/village-backend/weather"
)

type env struct {
	site    *router.Site
	store   *db.DB
	handler http.Handler
	cfg     *config.Config
}

type staticWeather struct{}

func (staticWeather) Fetch(context.Context) (weather.Report, error) {
	return weather.Report{OK: true, Icon: "☀️", Label: "Güneşli"}, nil
}

func newEnv(t *testing.T, adminKey string) *env {
	t.Helper()
	log.SetOutput(io.Discard)

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	require.NoError(t, cfg.EnsureLayout())

	store, err := db.Init(context.Background(), filepath.Join(cfg.DataDir, "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	site := &router.Site{
		Store:         store,
		PhotosDir:     cfg.PhotosDir(),
		VideosDir:     cfg.VideosDir(),
		StaticDir:     cfg.StaticDir(),
		Announcements: linelog.Open(cfg.AnnouncementFile()),
		Contact:       linelog.Open(cfg.ContactFile()),
		Gate:          admin.NewGate(adminKey, "", time.Hour, admin.NewMemoryRevoker()),
		Weather:       weather.NewCache(staticWeather{}, time.Minute, nil),
		Socials:       cfg.Socials,
		OrphanPolicy:  config.OrphanKeep,
	}
	return &env{site: site, store: store, handler: router.Init(site), cfg: cfg}
}

func (e *env) do(t *testing.T, method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *env) login(t *testing.T, password string) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, router.LoginPath, url.Values{"admin_password": {password}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, router.PanelPath, rec.Header().Get("Location"))
	for _, c := range rec.Result().Cookies() {
		if c.Name == admin.CookieName {
			return c
		}
	}
	t.Fatal("no admin cookie issued")
	return nil
}

func device(id string) *http.Cookie {
	return &http.Cookie{Name: identity.CookieName, Value: id}
}

func writePhoto(t *testing.T, dir, name string, at time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))
	require.NoError(t, os.Chtimes(path, at, at))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestLikeIsRecordedOncePerDevice(t *testing.T) {
	e := newEnv(t, "")
	form := url.Values{"post_id": {"foto:a.jpg"}, "name_full": {"Ayşe Yılmaz"}, "next": {"/fotograflar"}}

	for i := 0; i < 2; i++ {
		rec := e.do(t, http.MethodPost, "/like", form, device("dev-1"))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/fotograflar", rec.Header().Get("Location"))
	}
	e.do(t, http.MethodPost, "/like", form, device("dev-2"))

	count, err := e.store.LikeCount(context.Background(), "foto:a.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLikeStoresNameAsSent(t *testing.T) {
	e := newEnv(t, "")
	decomposed := "Ays\u0327e Yılmaz"
	e.do(t, http.MethodPost, "/like", url.Values{"post_id": {"foto:a.jpg"}, "name_full": {"  " + decomposed + " "}}, device("dev-1"))

	var name string
	require.NoError(t, e.store.Db.QueryRow("SELECT name_full FROM likes WHERE post_id = ?", "foto:a.jpg").Scan(&name))
	assert.Equal(t, decomposed, name)
}

func TestLikeMissingFieldsIsSilentlyDropped(t *testing.T) {
	e := newEnv(t, "")
	cases := []url.Values{
		{"post_id": {"foto:a.jpg"}},
		{"name_full": {"Ali"}},
		{"post_id": {"audio:a.mp3"}, "name_full": {"Ali"}},
		{"post_id": {"foto:a.jpg"}, "name_full": {"   "}, "next": {"https://evil.example"}},
	}
	for _, form := range cases {
		rec := e.do(t, http.MethodPost, "/like", form, device("dev-1"))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	}
	count, err := e.store.LikeCount(context.Background(), "foto:a.jpg")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLikeStripsDirectoryFromPostID(t *testing.T) {
	e := newEnv(t, "")
	e.do(t, http.MethodPost, "/like", url.Values{"post_id": {"foto:../../a.jpg"}, "name_full": {"Ali"}}, device("dev"))

	count, err := e.store.LikeCount(context.Background(), "foto:a.jpg")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCommentIsTruncatedTo250Characters(t *testing.T) {
	e := newEnv(t, "")
	long := strings.Repeat("ş", 300)
	rec := e.do(t, http.MethodPost, "/comment", url.Values{
		"post_id":   {"video:clip.mp4"},
		"name_full": {"Mehmet Kaya"},
		"comment":   {long},
	}, device("dev-1"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	comments, err := e.store.ListComments(context.Background(), "video:clip.mp4")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, 250, utf8.RuneCountInString(comments[0].Text))
	assert.Equal(t, "dev-1", comments[0].DeviceID)
}

func TestNewVisitorGetsDeviceCookie(t *testing.T) {
	e := newEnv(t, "")
	rec := e.do(t, http.MethodGet, "/duyuru", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == identity.CookieName {
			found = c
		}
	}
	require.NotNil(t, found)
	assert.Len(t, found.Value, 32)

	rec = e.do(t, http.MethodGet, "/duyuru", nil, device("known"))
	assert.Empty(t, rec.Result().Cookies())
}

func TestHomeRanksPhotosByLikes(t *testing.T) {
	e := newEnv(t, "")
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writePhoto(t, e.cfg.PhotosDir(), "a.jpg", base.Add(3*time.Hour))
	writePhoto(t, e.cfg.PhotosDir(), "b.jpg", base.Add(2*time.Hour))
	writePhoto(t, e.cfg.PhotosDir(), "c.jpg", base.Add(time.Hour))

	for _, dev := range []string{"d1", "d2", "d3"} {
		_, err := e.store.AddLike(ctx, "foto:b.jpg", dev, "Name")
		require.NoError(t, err)
	}
	_, err := e.store.AddLike(ctx, "foto:c.jpg", "viewer", "Name")
	require.NoError(t, err)
	require.NoError(t, e.store.AddComment(ctx, "foto:b.jpg", "d1", "Zeynep Demir", "Çok güzel"))

	rec := e.do(t, http.MethodGet, "/", nil, device("viewer"))
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[router.PageResponse](t, rec)

	require.Len(t, page.Posts, 3)
	assert.Equal(t, "b.jpg", page.Posts[0].Filename)
	assert.Equal(t, 3, page.Posts[0].Likes)
	assert.False(t, page.Posts[0].Liked)
	require.Len(t, page.Posts[0].Comments, 1)
	assert.Equal(t, "Zeynep", page.Posts[0].Comments[0].FirstName)
	assert.Equal(t, "c.jpg", page.Posts[1].Filename)
	assert.True(t, page.Posts[1].Liked)
	assert.Equal(t, "a.jpg", page.Posts[2].Filename)
	assert.Equal(t, "/static/fotograflar/b.jpg", page.Posts[0].URL)
	require.NotNil(t, page.Weather)
	assert.Equal(t, "Güneşli", page.Weather.Label)
}

func TestAnnouncementsShowNewestFirst(t *testing.T) {
	e := newEnv(t, "")
	require.NoError(t, e.site.Announcements.Append("Su kesintisi"))
	require.NoError(t, e.site.Announcements.Append("Yol çalışması"))

	page := decode[router.PageResponse](t, e.do(t, http.MethodGet, "/duyuru", nil))
	assert.Equal(t, []string{"Yol çalışması", "Su kesintisi"}, page.Lines)

	contact := decode[router.PageResponse](t, e.do(t, http.MethodGet, "/iletisim", nil))
	assert.Equal(t, "Muhtar:", contact.Lines[0])
}

func TestModerationWithoutSessionLooksLikeMissingRoute(t *testing.T) {
	e := newEnv(t, "secret")
	ctx := context.Background()
	require.NoError(t, e.store.AddComment(ctx, "foto:a.jpg", "dev", "Name", "stays"))
	writePhoto(t, e.cfg.PhotosDir(), "a.jpg", time.Now())
	require.NoError(t, e.site.Announcements.Append("kept"))

	unknown := e.do(t, http.MethodGet, "/no-such-page", nil)
	require.Equal(t, http.StatusNotFound, unknown.Code)

	requests := []struct {
		method, path string
		form         url.Values
	}{
		{http.MethodGet, router.PanelPath, nil},
		{http.MethodPost, "/admin/delete_comment", url.Values{"comment_id": {"1"}}},
		{http.MethodPost, "/admin/delete_photo", url.Values{"filename": {"a.jpg"}}},
		{http.MethodPost, "/admin/add_announcement", url.Values{"text": {"sneaky"}}},
		{http.MethodPost, "/admin/delete_announcement", url.Values{"reverse_index": {"0"}}},
		{http.MethodGet, "/admin/delete_comment", nil},
	}
	forged := &http.Cookie{Name: admin.CookieName, Value: "not-a-token"}
	for _, req := range requests {
		rec := e.do(t, req.method, req.path, req.form, forged)
		assert.Equal(t, http.StatusNotFound, rec.Code, req.path)
		assert.Equal(t, unknown.Body.String(), rec.Body.String(), req.path)
	}

	comments, err := e.store.ListComments(ctx, "foto:a.jpg")
	require.NoError(t, err)
	assert.Len(t, comments, 1)
	assert.FileExists(t, filepath.Join(e.cfg.PhotosDir(), "a.jpg"))
	lines, err := e.site.Announcements.ReadLines()
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, lines)
}

type failingRevoker struct{}

func (failingRevoker) Revoke(context.Context, string, time.Duration) error { return nil }

func (failingRevoker) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("dial tcp 127.0.0.1:6379: connection refused")
}

func TestRevocationOutageIsHiddenButLogged(t *testing.T) {
	e := newEnv(t, "s3cret")
	session := e.login(t, "s3cret")
	e.site.Gate = admin.NewGate("s3cret", "", time.Hour, failingRevoker{})

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(io.Discard) })

	rec := e.do(t, http.MethodGet, router.PanelPath, nil, session)
	missing := e.do(t, http.MethodGet, "/no-such-page", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, missing.Body.String(), rec.Body.String())
	assert.Contains(t, buf.String(), "[WARN]")
	assert.Contains(t, buf.String(), "connection refused")
}

func TestMissingSessionIsNotLogged(t *testing.T) {
	e := newEnv(t, "s3cret")

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(io.Discard) })

	rec := e.do(t, http.MethodGet, router.PanelPath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, buf.String(), "[WARN]")
}

func TestLoginRoutesHiddenWithoutKey(t *testing.T) {
	e := newEnv(t, "")
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, router.LoginPath, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, router.LoginPath, url.Values{"admin_password": {""}}).Code)
}

func TestWrongPassword(t *testing.T) {
	e := newEnv(t, "secret")
	rec := e.do(t, http.MethodPost, router.LoginPath, url.Values{"admin_password": {"guess"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, admin.CookieName, c.Name)
	}
}

func TestAdminModerationFlow(t *testing.T) {
	e := newEnv(t, "secret")
	ctx := context.Background()
	session := e.login(t, " secret ")

	require.NoError(t, e.store.AddComment(ctx, "foto:a.jpg", "dev", "Ali Veli", "ilk"))
	require.NoError(t, e.store.AddComment(ctx, "foto:a.jpg", "dev", "Ali Veli", "ikinci"))
	writePhoto(t, e.cfg.PhotosDir(), "a.jpg", time.Now())
	_, err := e.store.AddLike(ctx, "foto:a.jpg", "dev", "Ali Veli")
	require.NoError(t, err)

	for _, text := range []string{"Su kesintisi", "Yol çalışması"} {
		rec := e.do(t, http.MethodPost, "/admin/add_announcement", url.Values{"text": {text}}, session)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, router.PanelPath, rec.Header().Get("Location"))
	}

	panel := decode[router.PanelResponse](t, e.do(t, http.MethodGet, router.PanelPath, nil, session))
	require.Len(t, panel.Comments, 2)
	assert.Equal(t, "ikinci", panel.Comments[0].Text)
	assert.Equal(t, "foto:a.jpg", panel.Comments[0].PostID)
	assert.Equal(t, []string{"a.jpg"}, panel.Photos)
	require.Len(t, panel.Announcements, 2)
	assert.Equal(t, "Yol çalışması", panel.Announcements[0].Text)
	assert.Equal(t, 0, panel.Announcements[0].ReverseIndex)

	e.do(t, http.MethodPost, "/admin/delete_announcement", url.Values{"reverse_index": {"0"}}, session)
	lines, err := e.site.Announcements.ReadLines()
	require.NoError(t, err)
	assert.Equal(t, []string{"Su kesintisi"}, lines)

	e.do(t, http.MethodPost, "/admin/delete_announcement", url.Values{"reverse_index": {"abc"}}, session)
	e.do(t, http.MethodPost, "/admin/delete_comment", url.Values{"comment_id": {"x"}}, session)
	e.do(t, http.MethodPost, "/admin/delete_comment", url.Values{"comment_id": {"999"}}, session)
	e.do(t, http.MethodPost, "/admin/delete_comment", url.Values{"comment_id": {strconv.FormatInt(panel.Comments[0].ID, 10)}}, session)
	comments, err := e.store.ListComments(ctx, "foto:a.jpg")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "ilk", comments[0].Text)

	e.do(t, http.MethodPost, "/admin/delete_video", url.Values{"filename": {"a.jpg"}}, session)
	assert.FileExists(t, filepath.Join(e.cfg.PhotosDir(), "a.jpg"))
	e.do(t, http.MethodPost, "/admin/delete_photo", url.Values{"filename": {"../a.jpg"}}, session)
	assert.NoFileExists(t, filepath.Join(e.cfg.PhotosDir(), "a.jpg"))

	count, err := e.store.LikeCount(ctx, "foto:a.jpg")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "keep policy leaves engagement of deleted media")

	rec := e.do(t, http.MethodGet, "/cikis", nil, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, router.PanelPath, nil, session).Code)
}

func TestPurgePolicyRemovesEngagementWithMedia(t *testing.T) {
	e := newEnv(t, "secret")
	e.site.OrphanPolicy = config.OrphanPurge
	ctx := context.Background()
	session := e.login(t, "secret")

	writePhoto(t, e.cfg.VideosDir(), "clip.mp4", time.Now())
	_, err := e.store.AddLike(ctx, "video:clip.mp4", "dev", "Name")
	require.NoError(t, err)
	require.NoError(t, e.store.AddComment(ctx, "video:clip.mp4", "dev", "Name", "güzel"))

	e.do(t, http.MethodPost, "/admin/delete_video", url.Values{"filename": {"clip.mp4"}}, session)

	ids, err := e.store.PostIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStaticServesFilesButNotListings(t *testing.T) {
	e := newEnv(t, "")
	writePhoto(t, e.cfg.PhotosDir(), "a.jpg", time.Now())

	rec := e.do(t, http.MethodGet, "/static/fotograflar/a.jpg", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "img", rec.Body.String())

	rec = e.do(t, http.MethodGet, "/static/fotograflar/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
