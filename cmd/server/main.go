package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"buzzline/infrastructure/cache"
	"buzzline/infrastructure/db"
	"buzzline/infrastructure/ws"
	httpHandler "buzzline/internal/delivery/http"
	"buzzline/internal/delivery/websocket"
	"buzzline/internal/repository"
	"buzzline/internal/usecase"
	"buzzline/internal/worker"
	"buzzline/pkg/jwt"
	"buzzline/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	log, err := logger.New(logger.Config{Development: os.Getenv("ENV") != "production"})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := godotenv.Load(); err != nil {
		log.Infow("no .env file loaded")
	}

	ctx := context.Background()

	mongoStore, err := db.NewMongoStore(ctx, os.Getenv("MONGODB_URI"), os.Getenv("MONGODB_DATABASE"))
	if err != nil {
		log.Fatalw("mongodb connection failed", "error", err)
	}
	defer mongoStore.Close(ctx)

	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		log.Fatalw("index creation failed", "error", err)
	}
	log.Infow("connected to mongodb")

	userRepo := repository.NewUserRepository(mongoStore.DB)
	chatRepo := repository.NewChatRepository(mongoStore.DB)
	messageRepo := repository.NewMessageRepository(mongoStore.DB)
	notificationRepo := repository.NewNotificationRepository(mongoStore.DB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(mongoStore.DB)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-this-in-production"
		log.Warnw("using default jwt secret, set JWT_SECRET for production")
	}

	// Access token: 15 minutes, refresh token: 30 days.
	jwtManager := jwt.NewJWTManager(jwtSecret, 15*time.Minute, 30*24*time.Hour)

	var hub ws.IHub
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr != "" {
		serverID := os.Getenv("SERVER_ID")
		if serverID == "" {
			serverID = "server-1"
		}
		log.Infow("using redis hub", "addr", redisAddr, "serverId", serverID)
		hub = ws.NewRedisHub(redisAddr, serverID, log)
	} else {
		log.Infow("using in-memory hub (single server)")
		hub = ws.NewHub(log)
	}

	pusher := ws.NewPusher(hub, log)

	authUc := usecase.NewAuthUsecase(userRepo, refreshTokenRepo, jwtManager)
	userUc := usecase.NewUserUsecase(userRepo, log)
	notificationUc := usecase.NewNotificationUsecase(notificationRepo, userRepo, pusher, log)
	messageUc := usecase.NewMessageUsecase(messageRepo, chatRepo, userRepo, notificationUc, pusher, log)

	websocketH := websocket.NewWebsocketHandler(hub, authUc, userUc, messageUc, notificationUc, log)

	hub.SetOnClientUnregister(websocketH.HandleUnregisterClient)
	hub.SetOnPresenceChange(func(snapshots []ws.PresenceSnapshot) {
		frame, err := ws.EncodeEvent(ws.EventOnlineUsers, snapshots)
		if err != nil {
			log.Errorw("encode presence broadcast failed", "error", err)
			return
		}
		hub.Broadcast(frame)
	})

	go hub.Run()
	log.Infow("websocket hub running")

	sweeper := worker.NewSweeper(userRepo, worker.DefaultSweepInterval, worker.DefaultInactiveThreshold, log)
	sweeper.Start()
	defer sweeper.Stop()

	memCache := cache.NewMemCache(time.Minute)
	defer memCache.Close()
	rateLimiter := httpHandler.NewRateLimiter(memCache, 300, time.Minute)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	router.Use(corsMiddleware)

	httpH := httpHandler.NewHttpHandler(userUc, messageUc, notificationUc, sweeper, log)
	authH := httpHandler.NewAuthHandler(authUc, log)
	authMiddleware := httpHandler.NewAuthMiddleware(authUc)

	httpHandler.MapHttpRoutes(router, httpH, websocketH, authH, authMiddleware, rateLimiter)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Infow("http server running", "port", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalw("http server stopped", "error", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := os.Getenv("CORS_ORIGIN")
		if origin == "" {
			origin = "http://localhost:3000"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
