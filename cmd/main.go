package main

import (
	"context"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/recruit-pipeline/internal/config"
	"github.com/maxaizer/recruit-pipeline/internal/logger"
	"github.com/maxaizer/recruit-pipeline/internal/metrics"
	"github.com/maxaizer/recruit-pipeline/internal/realtime"
	"github.com/maxaizer/recruit-pipeline/internal/repositories"
	"github.com/maxaizer/recruit-pipeline/internal/services"
	log "github.com/sirupsen/logrus"
	"os/signal"
	"syscall"
)

// runLiveChannel picks the publisher for this process and, when redis is configured, forwards the
// viewer's redis channel onto the hub.
func runLiveChannel(ctx context.Context, cfg *config.Config, hub *realtime.Hub, viewerEmail string) (services.SessionDeps, func()) {

	deps := services.SessionDeps{Bus: hub.Bus(), Publisher: hub}
	if !cfg.Redis.Enabled() {
		log.Info("redis not configured, live updates stay in-process")
		return deps, func() {}
	}

	client := realtime.NewRedisClient(cfg.Redis)
	deps.Publisher = realtime.NewRedisPublisher(client, cfg.Redis.ChannelPrefix)

	subscriber := realtime.NewRedisSubscriber(client, hub, cfg.Redis.ChannelPrefix, viewerEmail)
	go func() {
		if err := subscriber.Run(ctx); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeRealtime).Errorf("live channel stopped: %v", err)
		}
	}()

	return deps, func() { _ = client.Close() }
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(ctx, cfg.Logger)
	defer logger.Cleanup()

	metrics.StartMetricsServer(cfg.Metrics.Address)

	viewer, err := cfg.Session.Viewer()
	if err != nil {
		log.Fatalf("invalid session viewer: %v", err)
	}

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	err = dbContext.Migrate()
	if err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	hub := realtime.NewHub(EventBus.New())
	deps, closeLive := runLiveChannel(ctx, cfg, hub, viewer.Email)
	defer closeLive()

	offers := repositories.NewCachedOffers(repositories.NewOffersRepository(dbContext.DB))
	deps.Offers = offers
	deps.Proposals = repositories.NewProposalsRepository(dbContext.DB, offers)
	deps.Messages = repositories.NewMessagesRepository(dbContext.DB)

	session := services.NewSession(viewer, cfg, deps)
	if err = session.Start(ctx); err != nil {
		log.Fatalf("can't start session: %v", err)
	}
	log.Infof("session of %s (%s) ready, %d proposals loaded", viewer.Email, viewer.Role, session.Proposals.Len())

	<-ctx.Done()

	log.Info("Shutting down session...")
	session.Close()
	<-session.Notices.Done
	log.Info("Session stopped.")
}
