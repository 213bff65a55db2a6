package bootstrap

import (
	"context"
	"time"

	"ai-networking-be/internal/config"
	"ai-networking-be/internal/controller"
	"ai-networking-be/internal/handler"
	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/internal/repository/memory"
	"ai-networking-be/internal/repository/redisstore"
	"ai-networking-be/internal/repository/unitofwork"
	"ai-networking-be/internal/service"
	internalWS "ai-networking-be/internal/websocket"
	"ai-networking-be/pkg/classifier"
	"ai-networking-be/pkg/conversation/continuity"
	"ai-networking-be/pkg/conversation/engine"
	"ai-networking-be/pkg/conversation/intent"
	"ai-networking-be/pkg/conversation/lifecycle"
	"ai-networking-be/pkg/conversation/sweeper"
	"ai-networking-be/pkg/events"
	"ai-networking-be/pkg/llm/factory"
	pktNats "ai-networking-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ConversationController controller.IConversationController
	ContactController      controller.IContactController
	SocketHandler          *handler.ConversationSocketHandler

	// Background services, run by main.go
	Sweeper         *sweeper.Sweeper
	ConsumerService service.IConsumerService
	Hub             *internalWS.Hub

	Logger logger.ILogger

	closers []func()
}

// ConversationStack is everything needed to turn messages into contacts.
type ConversationStack struct {
	Sessions  *memory.SessionRepository
	Engine    *engine.Engine
	Sweeper   *sweeper.Sweeper
	Committer *service.ContactCommitter
}

// StackOptions carries the pluggable parts of a ConversationStack. Zero values
// give rule-only classification, no event bus and no snapshots.
type StackOptions struct {
	Classifier classifier.Classifier
	Publisher  events.Publisher
	Persister  memory.SessionPersister
	Clock      func() time.Time
}

func NewConversationStack(cfg *config.Config, uowFactory unitofwork.RepositoryFactory, opts StackOptions, log logger.ILogger) *ConversationStack {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	repoOpts := []memory.Option{memory.WithClock(opts.Clock)}
	if opts.Persister != nil {
		repoOpts = append(repoOpts, memory.WithPersister(opts.Persister))
	}
	sessions := memory.NewSessionRepository(log, repoOpts...)

	committer := service.NewContactCommitter(uowFactory, opts.Clock, log)
	ctrl := lifecycle.NewController(committer, opts.Publisher, lifecycle.Config{
		AutoCommitAfter:     cfg.Session.AutoCommitAfter,
		ConfirmBeforeCommit: cfg.Session.ConfirmBeforeCommit,
		RecentSubjects:      cfg.Session.RecentSubjects,
	}, log)

	eng := engine.New(engine.Deps{
		Sessions:   sessions,
		Classifier: opts.Classifier,
		Detector: continuity.NewDetector(continuity.Config{
			ShortMessageWords:   cfg.Session.ShortMessageWords,
			SameBreathWindow:    cfg.Session.SameBreathWindow,
			InactivityThreshold: cfg.Session.InactivityThreshold,
		}),
		Resolver:   intent.NewResolver(cfg.Session.CorrectionWindow, log),
		Controller: ctrl,
		Clock:      opts.Clock,
		Logger:     log,
	})

	return &ConversationStack{
		Sessions:  sessions,
		Engine:    eng,
		Sweeper:   sweeper.New(sessions, ctrl, cfg.Session.SweepInterval, opts.Clock, log),
		Committer: committer,
	}
}

// NewClassifier returns the LLM classifier for the configured provider, or the
// rule classifier when the provider is "rules" or cannot be built.
func NewClassifier(cfg *config.Config, log logger.ILogger) classifier.Classifier {
	provider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.HuggingFaceToken,
	)
	if err != nil {
		log.Warn(logger.ModuleClassifier, "LLM provider unavailable, using rules", map[string]interface{}{
			"provider": cfg.Ai.LLMProvider,
			"error":    err.Error(),
		})
		return classifier.NewRuleClassifier()
	}
	if provider == nil {
		return classifier.NewRuleClassifier()
	}

	log.Info(logger.ModuleClassifier, "Using LLM classifier", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})
	return classifier.NewLLMClassifier(provider, cfg.Ai.ClassifierTimeout, log)
}

// NewContainer wires the server. A nil db keeps contacts in memory.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}

	// 1. Contact storage
	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	} else {
		sysLogger.Warn(logger.ModuleLifecycle, "No database configured, contacts are kept in memory", nil)
		uowFactory = memory.NewRepositoryFactory(memory.NewContactRepository(nil))
	}

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var relay service.EnvelopeRelay
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn(logger.ModuleEvents, "Failed to connect to NATS, events stay in process", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			relay = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// 3. Redis: session snapshots and cross-instance socket delivery
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := redisstore.NewClient(ctx, cfg.App.RedisURL)
		cancel()
		if err != nil {
			sysLogger.Warn(logger.ModuleSession, "Failed to connect to Redis, running single instance", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			rdb = client
			c.closers = append(c.closers, func() { _ = client.Close() })
		}
	}

	var persister memory.SessionPersister
	if cfg.Session.SnapshotToRedis && rdb != nil {
		persister = redisstore.NewSessionStore(rdb, cfg.Session.SnapshotTTL)
	}

	// 4. Conversation engine
	stack := NewConversationStack(cfg, uowFactory, StackOptions{
		Classifier: NewClassifier(cfg, sysLogger),
		Publisher:  events.NewBusPublisher(pubSub, events.LifecycleTopic),
		Persister:  persister,
	}, sysLogger)
	if persister != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := stack.Sessions.Restore(ctx); err != nil {
			sysLogger.Warn(logger.ModuleSession, "Failed to restore session snapshots", map[string]interface{}{
				"error": err.Error(),
			})
		}
		cancel()
	}

	// 5. Services & controllers
	conversationService := service.NewConversationService(stack.Engine, stack.Sessions)
	contactService := service.NewContactService(uowFactory)

	c.Hub = internalWS.NewHub(rdb, sysLogger)

	c.ConversationController = controller.NewConversationController(conversationService)
	c.ContactController = controller.NewContactController(contactService)
	c.SocketHandler = handler.NewConversationSocketHandler(conversationService, c.Hub, cfg.App.JWTSecret, sysLogger)
	c.Sweeper = stack.Sweeper
	c.ConsumerService = service.NewConsumerService(pubSub, events.LifecycleTopic, sysLogger, relay, c.Hub)

	return c
}

// Close releases bus, NATS and Redis connections in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
