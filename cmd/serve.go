package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fetchbot/internal/bot"
	"fetchbot/internal/deliver"
	"fetchbot/internal/download"
	"fetchbot/internal/extract"
	"fetchbot/internal/httputil"
	"fetchbot/internal/policy"
	"fetchbot/internal/resolver"
	"fetchbot/internal/session"
	"fetchbot/internal/status"
	"fetchbot/internal/store"
	"fetchbot/internal/telegram"
)

const (
	pollTimeout   = 60 // seconds
	sweepInterval = time.Minute
	uploadBudget  = 2 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot",
	Args:  cobra.NoArgs,
	RunE:  serveRun,
}

func serveRun(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	lists := policy.NewLists(st)
	if err := lists.Refresh(ctx); err != nil {
		return fmt.Errorf("loading ban lists: %w", err)
	}

	ytdlp := extract.NewYtDlp(cfg.ExtractorPath, cfg.ExtractTimeout.Duration, cfg.ExtractRetries, cfg.MaxFileSize)
	var ext extract.Extractor = ytdlp
	if cfg.OpenGraphFallback {
		ext = extract.Chain{ytdlp, extract.NewOpenGraph(httputil.NewClient(cfg.FetchTimeout.Duration))}
	}

	api, err := telegram.Connect(cfg.BotToken, cfg.Debug)
	if err != nil {
		return err
	}
	tr := telegram.NewTransport(api, logger)

	pipeline := deliver.New(
		download.NewYtDlp(ytdlp, cfg.DownloadTimeout.Duration),
		httputil.NewClient(cfg.DownloadTimeout.Duration),
		tr,
		cfg.TempDir,
		cfg.MaxFileSize,
		logger,
	)

	sessions := session.NewStore(cfg.SessionTTL.Duration, cfg.MaxSessions)
	go sessions.Run(ctx, sweepInterval)

	handler := bot.New(bot.Options{
		Gate:      policy.NewGate(lists),
		Lists:     lists,
		Resolver:  resolver.New(ext),
		Sessions:  sessions,
		Deliverer: pipeline,
		Transport: tr,
		Store:     st,
		AdminIDs:  cfg.AdminIDs,
		MaxBytes:  cfg.MaxFileSize,
		Timeout:   eventTimeout(),
		Log:       logger,
	})

	if cfg.StatusAddr != "" {
		go func() {
			if err := status.Serve(ctx, cfg.StatusAddr, status.NewRouter(st, handler, logger), logger); err != nil {
				logger.Error().Err(err).Msg("status server")
			}
		}()
	}

	logger.Info().
		Str("database", cfg.DatabasePath).
		Int("blocked_domains", len(lists.BlockedDomains())).
		Msg("bot starting")

	err = telegram.NewPoller(api, pollTimeout, logger).Run(ctx, handler)

	logger.Info().Msg("waiting for in-flight requests")
	handler.Wait()
	return err
}

// eventTimeout bounds one event: resolution, extractor download, raw fetch
// and upload.
func eventTimeout() time.Duration {
	return cfg.ExtractTimeout.Duration + 2*cfg.DownloadTimeout.Duration + uploadBudget
}
