package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/rangda/adapters/directory"
	"github.com/layer-3/rangda/adapters/events"
	"github.com/layer-3/rangda/adapters/store"
	"github.com/layer-3/rangda/adapters/tokenizer"
	"github.com/layer-3/rangda/config"
	"github.com/layer-3/rangda/ports"
	"github.com/layer-3/rangda/service"
	"github.com/layer-3/rangda/transport/http"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Generate a new ECDSA key pair (you would normally load this from somewhere secure)
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}

	logger := watermill.NewStdLogger(false, false)

	var (
		challenges ports.ChallengeStore
		sessions   ports.Store
		publisher  message.Publisher
	)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			logger,
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}

		challenges = store.NewRedisChallengeStore(redisClient)
		sessions = store.NewRedisStore(redisClient)
	} else {
		log.Println("No Redis URL configured, using in-memory stores")
		publisher = gochannel.NewGoChannel(gochannel.Config{}, logger)
		challenges = store.NewMemoryChallengeStore()
		sessions = store.NewMemoryStore()
	}

	dir := directory.NewHTTPDirectory(cfg.DirectoryEndpoint, cfg.DirectoryProject, cfg.DirectoryKey)
	jwtTokenizer := tokenizer.NewJWTTokenizer(privateKey)
	eventPub := events.NewWatermillPublisher(publisher)

	authService := service.NewAuthService(dir, challenges, jwtTokenizer, eventPub, service.RelyingParty{
		Name:    cfg.RPName,
		ID:      cfg.RPID,
		Origins: cfg.RPOrigins,
	}, cfg.ChallengeTTL)

	sessionService := service.NewSessionService(jwtTokenizer, sessions, dir, eventPub)
	sessionService.SetTokenTTLs(cfg.AccessTTL, cfg.RefreshTTL)

	router := http.SetupRouter(authService, sessionService)

	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
