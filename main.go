package main

import (
	bidding "auction-ledger/internal/biddingService"
	"auction-ledger/internal/config"
	"auction-ledger/internal/identity"
	"auction-ledger/internal/ledger"
	model "auction-ledger/internal/models"
	"auction-ledger/internal/notifier"
	"auction-ledger/internal/query"
	"auction-ledger/internal/repository"
	"auction-ledger/internal/server"
	"auction-ledger/internal/sweeper"
	"auction-ledger/utils"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := utils.ConfigureLogger(cfg.LogLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	inbox := notifier.NewInbox(notifier.DefaultInboxSize)
	publishers := notifier.FanOut{notifier.LogPublisher{}, inbox}
	if cfg.RedisAddr != "" {
		client := notifier.NewRedisClient(cfg.RedisAddr)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		publishers = append(publishers, notifier.NewRedisPublisher(client, cfg.RedisChannel))
		utils.Info("redis notifications enabled", map[string]any{"addr": cfg.RedisAddr, "channel": cfg.RedisChannel})
	}

	clock := ledger.SystemClock{}
	auctionLedger := ledger.NewLedger(store, clock)
	queries := query.NewService(store, clock)
	events := notifier.NewNotifier(publishers, cfg.NotifyBuffer)
	sweep := sweeper.NewSweeper(auctionLedger, store, events, cfg.SweepInterval, cfg.SweepConcurrency)

	directory := identity.NewMemoryDirectory()
	prepopulateUsers(directory)

	biddingSvc := bidding.NewBiddingService(auctionLedger, queries, events, inbox)
	if cfg.DBSource == "" {
		prepopulateAuctions(ctx, biddingSvc)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.SetupRouter(biddingSvc, directory),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return events.Run(gctx) })
	g.Go(func() error { return sweep.Run(gctx) })
	g.Go(func() error {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		utils.Info("shutting down auction server", nil)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore selects Postgres when DB_SOURCE is set and the in-memory store otherwise
func openStore(ctx context.Context, cfg *config.Config) (repository.AuctionStore, func(), error) {
	if cfg.DBSource == "" {
		utils.Info("using in-memory auction store", nil)
		return repository.NewMemoryRepo(), func() {}, nil
	}

	repo, err := repository.NewPostgresRepo(ctx, cfg.DBSource)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		repo.Close()
		return nil, nil, err
	}
	utils.Info("using postgres auction store", nil)
	return repo, repo.Close, nil
}

// prepopulateUsers adds sample participants to the directory
func prepopulateUsers(dir *identity.MemoryDirectory) {
	users := []model.Principal{
		{UserID: "admin", Name: "Administrator", Role: model.RoleAdmin},
		{UserID: "user1", Name: "Seller One", Role: model.RoleUser},
		{UserID: "user2", Name: "Bidder Two", Role: model.RoleUser},
		{UserID: "user3", Name: "Bidder Three", Role: model.RoleUser},
	}

	for _, u := range users {
		if err := dir.Register(u); err != nil {
			utils.Warn("failed to register sample user", map[string]any{"user_id": u.UserID, "error": err.Error()})
		}
	}
}

// prepopulateAuctions opens sample auctions in the in-memory store
func prepopulateAuctions(ctx context.Context, svc *bidding.BiddingService) {
	seller := model.Principal{UserID: "user1", Name: "Seller One", Role: model.RoleUser}
	auctions := []bidding.CreateAuctionInput{
		{Title: "Vintage Watch", Description: "Swiss automatic, 1960s", Category: "jewelry", MinBid: decimal.NewFromInt(100), DurationHours: 24},
		{Title: "Oil Painting", Description: "Landscape on canvas", Category: "art", MinBid: decimal.NewFromInt(200), DurationHours: 48},
		{Title: "Acoustic Guitar", Description: "Solid spruce top", Category: "music", MinBid: decimal.NewFromInt(150), DurationHours: 12},
	}

	for _, in := range auctions {
		if _, err := svc.CreateAuction(ctx, seller, in); err != nil {
			utils.Warn("failed to create sample auction", map[string]any{"title": in.Title, "error": err.Error()})
		}
	}
}
