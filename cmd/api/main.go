package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/BT0mob40-bot/gameplay/internal/config"
	"github.com/BT0mob40-bot/gameplay/internal/crash"
	"github.com/BT0mob40-bot/gameplay/internal/fair"
	"github.com/BT0mob40-bot/gameplay/internal/handlers"
	"github.com/BT0mob40-bot/gameplay/internal/ledger"
	"github.com/BT0mob40-bot/gameplay/internal/middleware"
	"github.com/BT0mob40-bot/gameplay/internal/mines"
	"github.com/BT0mob40-bot/gameplay/internal/payout"
	"github.com/BT0mob40-bot/gameplay/internal/services"
	"github.com/BT0mob40-bot/gameplay/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	if cfg.Env == "production" {
		log.SetFormatter(&log.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := client.Ping(pingCtx).Err(); err != nil {
		cancel()
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	cancel()
	defer client.Close()

	wallet := ledger.NewRedis(client, cfg.StartingBalanceCents)
	sessions := store.NewRedis(client)
	gen := fair.New(cfg.CrashHouseEdge, cfg.CrashMaxMultiplier)
	jwtService := services.NewJWTService(cfg)

	round := crash.New(crash.Config{
		BettingPhase: cfg.BettingPhase,
		Cooldown:     cfg.CrashCooldown,
		TickInterval: cfg.TickInterval,
		Curve: payout.CrashCurve{
			SpeedBase: cfg.CrashSpeedBase,
			AccelMs:   cfg.CrashAccelMs,
		},
		HistorySize: cfg.CrashHistorySize,
	}, gen, wallet, sessions, nil)

	minesEngine := mines.New(mines.Config{
		HouseEdge:     cfg.MinesHouseEdge,
		MaxMultiplier: cfg.MinesMaxMultiplier,
	}, gen, wallet, sessions)

	wsHandler := handlers.NewWebSocketHandler(round, wallet)
	round.SetBroadcaster(wsHandler.Hub())
	round.Start()

	authHandler := handlers.NewAuthHandler(jwtService)
	crashHandler := handlers.NewCrashHandler(round, cfg)
	minesHandler := handlers.NewMinesHandler(minesEngine, cfg)
	walletHandler := handlers.NewWalletHandler(wallet)
	fairHandler := handlers.NewFairHandler(gen, wallet)

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Env != "production" {
		router.POST("/auth/token", authHandler.IssueToken)
	}

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(sessions))
	{
		protected.GET("/ws", wsHandler.HandleWebSocket)

		crashGroup := protected.Group("/crash")
		{
			crashGroup.POST("/bet", crashHandler.PlaceBet)
			crashGroup.POST("/cashout", crashHandler.CashOut)
			crashGroup.GET("/round", crashHandler.GetRound)
			crashGroup.GET("/history", crashHandler.GetHistory)
		}

		minesGroup := protected.Group("/mines")
		{
			minesGroup.POST("/start", minesHandler.Start)
			minesGroup.POST("/reveal", minesHandler.Reveal)
			minesGroup.POST("/cashout", minesHandler.CashOut)
			minesGroup.GET("/active", minesHandler.GetActiveGames)
		}

		walletGroup := protected.Group("/wallet")
		{
			walletGroup.GET("/balance", walletHandler.GetBalance)
			walletGroup.POST("/deposit", walletHandler.Deposit)
			walletGroup.POST("/withdraw", walletHandler.Withdraw)
			walletGroup.GET("/ledger", walletHandler.GetLedger)
			walletGroup.POST("/bonus", middleware.AdminOnly(), walletHandler.GrantBonus)
		}

		fairGroup := protected.Group("/fair")
		{
			fairGroup.GET("/me", fairHandler.GetFairness)
			fairGroup.POST("/verify/crash", fairHandler.VerifyCrash)
			fairGroup.POST("/verify/mines", fairHandler.VerifyMines)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	// Stop the round engine first so open stakes are refunded before the
	// process exits.
	if err := round.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Round engine did not stop cleanly")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server did not shut down cleanly")
	}
}
