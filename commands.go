package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/duzagac/village-backend/admin"
	"github.com/duzagac/village-backend/common"
	"github.com/duzagac/village-backend/config"
	"github.com/duzagac/village-backend/db"
	"github.com/duzagac/village-backend/linelog"
	"github.com/duzagac/village-backend/log"
	"github.com/duzagac/village-backend/media"
	"github.com/duzagac/village-backend/router"
	"github.com/duzagac/village-backend/weather"
)

func newRootCommand() *cobra.Command {
	var configPath string

	serve := newServeCommand(&configPath)
	root := &cobra.Command{
		Use:           "village",
		Short:         "Düzağaç village site",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "site.toml", "Configuration file path")

	root.AddCommand(serve)
	root.AddCommand(newCommentsCommand(&configPath))
	root.AddCommand(newPruneCommand(&configPath))
	return root
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureLayout(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	log.Info.Printf("Starting village site...\n")

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := db.Init(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	key, err := admin.LoadKey(cfg.AdminKeyFile)
	if err != nil {
		return err
	}
	if key == "" {
		log.Warn.Printf("no admin key in %s, moderation is disabled", cfg.AdminKeyFile)
	}

	var revoker admin.Revoker = admin.NewMemoryRevoker()
	if cfg.RedisURL != "" {
		client, err := admin.DialRedis(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		revoker = admin.NewRedisRevoker(client)
	}

	fetcher := weather.NewOpenMeteo(cfg.Weather.BaseURL, cfg.Weather.Latitude, cfg.Weather.Longitude,
		time.Duration(cfg.Weather.TimeoutSeconds)*time.Second)

	site := &router.Site{
		Store:         store,
		PhotosDir:     cfg.PhotosDir(),
		VideosDir:     cfg.VideosDir(),
		StaticDir:     cfg.StaticDir(),
		Announcements: linelog.Open(cfg.AnnouncementFile()),
		Contact:       linelog.Open(cfg.ContactFile()),
		Gate:          admin.NewGate(key, cfg.SessionSecret, cfg.SessionTTL(), revoker),
		Weather:       weather.NewCache(fetcher, time.Duration(cfg.Weather.TTLSeconds)*time.Second, time.Now),
		Socials:       cfg.Socials,
		OrphanPolicy:  cfg.OrphanPolicy,
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Init(site),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info.Printf("Listening on http://%s\n", cfg.Addr())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info.Printf("Shutting down...\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newCommentsCommand(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "List the latest comments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			store, err := db.Init(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer store.Close()

			comments, err := store.RecentComments(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(comments))
			for _, c := range comments {
				rows = append(rows, []string{
					strconv.FormatInt(c.ID, 10),
					c.PostID,
					common.FirstName(c.NameFull),
					common.FormatDate(c.CreatedAt),
					c.Text,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Post", "Name", "Date", "Comment"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 200, "Number of comments to show")
	return cmd
}

func newPruneCommand(configPath *string) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete likes and comments of media files that no longer exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			store, err := db.Init(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := prune(cmd.Context(), store, cfg.PhotosDir(), cfg.VideosDir(), dryRun)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(removed))
			for _, r := range removed {
				rows = append(rows, []string{r.postID, strconv.FormatInt(r.rows, 10)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Post", "Rows"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list orphaned posts")
	return cmd
}

type pruned struct {
	postID string
	rows   int64
}

// orphanStore is what prune needs from the engagement store.
type orphanStore interface {
	PostIDs(ctx context.Context) ([]string, error)
	DeletePostEngagement(ctx context.Context, postID string) (int64, error)
}

func prune(ctx context.Context, store orphanStore, photosDir, videosDir string, dryRun bool) ([]pruned, error) {
	ids, err := store.PostIDs(ctx)
	if err != nil {
		return nil, err
	}
	orphans, err := media.Orphans(ids, photosDir, videosDir)
	if err != nil {
		return nil, err
	}
	out := make([]pruned, 0, len(orphans))
	for _, id := range orphans {
		if dryRun {
			out = append(out, pruned{postID: id})
			continue
		}
		n, err := store.DeletePostEngagement(ctx, id)
		if err != nil {
			return nil, err
		}
		log.Info.Printf("pruned %d rows of %s", n, id)
		out = append(out, pruned{postID: id, rows: n})
	}
	return out, nil
}
