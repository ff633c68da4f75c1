package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Acrellux/vctools-sub001/internal/config"
	"github.com/Acrellux/vctools-sub001/internal/httpapi"
	"github.com/Acrellux/vctools-sub001/internal/infra/discord"
	s3infra "github.com/Acrellux/vctools-sub001/internal/infra/s3"
	pgrepo "github.com/Acrellux/vctools-sub001/internal/repo/postgres"
	redrepo "github.com/Acrellux/vctools-sub001/internal/repo/redis"
	"github.com/Acrellux/vctools-sub001/internal/services/confirm"
	"github.com/Acrellux/vctools-sub001/internal/services/executor"
	exportsvc "github.com/Acrellux/vctools-sub001/internal/services/export"
	"github.com/Acrellux/vctools-sub001/internal/services/flowstate"
	"github.com/Acrellux/vctools-sub001/internal/services/history"
	"github.com/Acrellux/vctools-sub001/internal/services/ledger"
	"github.com/Acrellux/vctools-sub001/internal/services/purge"
	statssvc "github.com/Acrellux/vctools-sub001/internal/services/stats"
	"github.com/Acrellux/vctools-sub001/internal/ui"
)

type App struct {
	cfg    config.Config
	logger *slog.Logger

	pool  *pgxpool.Pool
	redis *goredis.Client
	dg    *discord.Client
	http  *httpapi.Server

	ledgerService   *ledger.Service
	confirmService  *confirm.Service
	flowService     *flowstate.Service
	executorService *executor.Service
	historyService  *history.Service
	purgeService    *purge.Service
	exportService   *exportsvc.Service
	statsService    *statssvc.Service

	router *Router
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgrepo.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Warn("postgres unavailable, ledger will run degraded", "error", err)
		pool = nil
	}

	redisClient, err := redrepo.NewClient(context.Background(), cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, confirmations and dedup will run degraded", "error", err)
		redisClient = nil
	}

	ledgerRepo := pgrepo.NewLedgerRepo(pool)
	confirmRepo := redrepo.NewConfirmationsRepo(redisClient)
	contextsRepo := redrepo.NewContextsRepo(redisClient)
	inflightRepo := redrepo.NewInflightRepo(redisClient)

	app := &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		ledgerService:  ledger.NewService(ledgerRepo),
		confirmService: confirm.NewService(confirmRepo),
		flowService:    flowstate.NewService(contextsRepo),
		statsService:   statssvc.NewService(pgrepo.NewStatsRepo(pool)),
	}

	app.dg, err = discord.NewClient(cfg.BotToken, logger, app.handleInteraction)
	if err != nil {
		return nil, fmt.Errorf("create discord client: %w", err)
	}

	app.executorService = executor.NewService(app.dg, app.ledgerService, logger)
	app.historyService = history.NewService(app.ledgerService, app.dg)
	app.purgeService = purge.NewService(app.dg, app.ledgerService, logger)

	var store *s3infra.Store
	if cfg.IsExportEnabled() {
		store, err = s3infra.NewStore(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err != nil {
			logger.Warn("s3 unavailable, exports disabled", "error", err)
			store = nil
		}
	} else {
		logger.Info("exports disabled: missing S3_ENDPOINT or S3_BUCKET")
	}
	app.exportService = exportsvc.NewService(app.ledgerService, storeOrNil(store), logger)

	app.router = NewRouter(inflightRepo, app.flowService, app.dg.IsAdmin, logger)
	app.registerRoutes(app.router)

	if cfg.HTTPAddr != "" {
		app.http = httpapi.NewServer(cfg.HTTPAddr, map[string]httpapi.Pinger{
			"postgres": pgPinger{pool: pool},
			"redis":    redisPinger{client: redisClient},
		})
	}

	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if a.http != nil {
		go func() {
			if err := a.http.Start(); err != nil {
				a.logger.Error("http server", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.http.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("shutdown http server", "error", err)
			}
		}()
	}

	return a.dg.Start(ctx)
}

func (a *App) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("close redis", "error", err)
		}
	}
}

// handleInteraction adapts a gateway interaction into a router callback.
func (a *App) handleInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	if i == nil || i.Type != discordgo.InteractionMessageComponent {
		return
	}

	actorID := ""
	if i.Member != nil && i.Member.User != nil {
		actorID = i.Member.User.ID
	} else if i.User != nil {
		actorID = i.User.ID
	}
	if actorID == "" {
		return
	}

	cb := Callback{
		CallbackID: i.ID,
		ControlID:  i.MessageComponentData().CustomID,
		ActorID:    actorID,
		GuildID:    i.GuildID,
	}

	a.router.Dispatch(ctx, cb, interactionSurface{responder: a.dg.Responder(i)})
}

type interactionSurface struct {
	responder *discord.Responder
}

func (s interactionSurface) Ack(ctx context.Context) error {
	return s.responder.AckUpdate(ctx)
}

func (s interactionSurface) Respond(ctx context.Context, content string) error {
	return s.responder.Ephemeral(ctx, content)
}

func (s interactionSurface) Followup(ctx context.Context, content string) error {
	return s.responder.FollowupEphemeral(ctx, content)
}

func (s interactionSurface) Update(ctx context.Context, content string, buttons []ui.Button) error {
	return s.responder.UpdateMessage(ctx, content, discord.BuildButtonRows([][]ui.Button{buttons}))
}

func (s interactionSurface) Disable(ctx context.Context) error {
	return s.responder.DisableControls(ctx)
}

// storeOrNil keeps the export service's Store interface nil when the
// concrete client is absent, so Enabled() reports correctly.
func storeOrNil(store *s3infra.Store) exportsvc.Store {
	if store == nil {
		return nil
	}
	return store
}

type pgPinger struct {
	pool *pgxpool.Pool
}

func (p pgPinger) Ping(ctx context.Context) error {
	if p.pool == nil {
		return errors.New("postgres is not configured")
	}
	return p.pool.Ping(ctx)
}

type redisPinger struct {
	client *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	if p.client == nil {
		return errors.New("redis is not configured")
	}
	return p.client.Ping(ctx).Err()
}
