// Package app builds the dependency graph shared by the server and the
// command-line tools from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"visar-backend/config"
	"visar-backend/embedding"
	"visar-backend/extractor"
	"visar-backend/llm"
	"visar-backend/prompt"
	"visar-backend/repository"
	"visar-backend/repository/memstore"
	"visar-backend/repository/mongostore"
	"visar-backend/service"
	"visar-backend/storage"
	"visar-backend/vectorindex"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Stores groups the durable stores selected by database.driver
type Stores struct {
	Clients       repository.ClientStore
	References    repository.ReferenceStore
	Templates     repository.TemplateStore
	Conversations repository.ConversationStore
	Petitions     repository.PetitionStore
	Jobs          repository.JobStore
	CaseDocuments repository.CaseDocumentStore
}

// Container holds every long-lived component
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Postgres *pgxpool.Pool
	Mongo    *mongo.Client
	Stores   Stores

	Index     vectorindex.Index
	Embedder  embedding.Embedder
	Generator llm.Generator
	Storage   storage.Storage

	Clients   *service.ClientService
	Templates *service.TemplateService
	Retriever *service.Retriever
	Ingestion *service.IngestionService
	History   *service.HistoryService
	Drafts    *service.DraftService
	Chat      *service.ChatService
	Reindex   *service.ReindexService
	CaseDocs  *service.CaseDocumentService

	closers []func() error
}

// New connects to the configured backends and wires the services. Failure
// to reach the durable store is fatal; an unreachable vector index is
// replaced by vectorindex.Unavailable so the service still answers with
// empty retrieval context.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}

	if err := c.initStores(ctx); err != nil {
		c.Close()
		return nil, err
	}

	c.Index = c.initIndex(ctx)

	embedder, err := c.initEmbedder(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Embedder = embedder

	generator, err := c.initGenerator(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Generator = generator

	c.Storage, err = storage.NewStorage(ctx, cfg.Storage)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	c.initServices()
	return c, nil
}

func (c *Container) initStores(ctx context.Context) error {
	cfg := c.Config.Database

	switch cfg.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.URL)
		if err != nil {
			return fmt.Errorf("failed to create postgres pool: %w", err)
		}
		c.Postgres = pool
		c.closers = append(c.closers, func() error { pool.Close(); return nil })
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("failed to ping postgres: %w", err)
		}

		c.Stores = Stores{
			Clients:       repository.NewClientRepository(pool),
			References:    repository.NewReferenceRepository(pool),
			Templates:     repository.NewTemplateRepository(pool),
			Conversations: repository.NewConversationRepository(pool),
			Petitions:     repository.NewPetitionRepository(pool),
			Jobs:          repository.NewJobRepository(pool),
			CaseDocuments: repository.NewCaseDocumentRepository(pool),
		}
		c.Logger.Info("postgres connection established")

	case "mongo":
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		c.Mongo = client
		c.closers = append(c.closers, func() error { return client.Disconnect(context.Background()) })

		db := client.Database(cfg.MongoDatabase)
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			return fmt.Errorf("failed to ensure mongo indexes: %w", err)
		}

		c.Stores = Stores{
			Clients:       mongostore.NewClientStore(db),
			References:    mongostore.NewReferenceStore(db),
			Templates:     mongostore.NewTemplateStore(db),
			Conversations: mongostore.NewConversationStore(db),
			Petitions:     mongostore.NewPetitionStore(db),
			Jobs:          mongostore.NewJobStore(db),
			CaseDocuments: mongostore.NewCaseDocumentStore(db),
		}
		c.Logger.Info("mongo connection established", zap.String("database", cfg.MongoDatabase))

	case "memory":
		c.Stores = Stores{
			Clients:       memstore.NewClientStore(),
			References:    memstore.NewReferenceStore(),
			Templates:     memstore.NewTemplateStore(),
			Conversations: memstore.NewConversationStore(),
			Petitions:     memstore.NewPetitionStore(),
			Jobs:          memstore.NewJobStore(),
			CaseDocuments: memstore.NewCaseDocumentStore(),
		}
		c.Logger.Warn("using in-memory stores; data is lost on restart")

	default:
		return fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
	return nil
}

func (c *Container) initIndex(ctx context.Context) vectorindex.Index {
	cfg := c.Config.Vector
	spec := vectorindex.Spec{
		Name:      cfg.Name,
		Dimension: cfg.Dimension,
		Metric:    vectorindex.Metric(cfg.Metric),
	}
	log := c.Logger.With(zap.String("backend", cfg.Backend), zap.String("index", cfg.Name))

	var (
		idx vectorindex.Index
		err error
	)
	switch cfg.Backend {
	case "pgvector":
		if c.Postgres == nil {
			err = errors.New("pgvector requires a postgres connection")
			break
		}
		idx, err = vectorindex.NewPGVectorIndex(c.Postgres, spec, c.Logger)
	case "milvus":
		var m *vectorindex.MilvusIndex
		m, err = vectorindex.NewMilvusIndex(ctx, cfg.MilvusAddress, spec, c.Logger)
		if err == nil {
			c.closers = append(c.closers, m.Close)
			idx = m
		}
	case "memory":
		idx, err = vectorindex.NewMemoryIndex(spec)
	default:
		err = fmt.Errorf("unknown vector backend: %s", cfg.Backend)
	}
	if err != nil {
		log.Error("vector index unavailable; retrieval will return empty context", zap.Error(err))
		return vectorindex.Unavailable{Err: err}
	}

	if err := idx.EnsureIndex(ctx); err != nil {
		log.Warn("failed to ensure vector index", zap.Error(err))
	} else {
		log.Info("vector index ready", zap.Int("dimension", cfg.Dimension))
	}
	return idx
}

func (c *Container) initEmbedder(ctx context.Context) (embedding.Embedder, error) {
	cfg := c.Config.Embedding

	var embedder embedding.Embedder
	switch cfg.Provider {
	case "gemini":
		if cfg.APIKey == "" {
			c.Logger.Warn("embedding api key not set; embedding calls will fail")
		}
		embedder = embedding.NewGeminiEmbedder(cfg.APIKey, cfg.Model, c.Config.Vector.Dimension,
			embedding.WithTimeout(c.Config.Timeouts.Embed))
	case "hash":
		embedder = embedding.NewHashEmbedder(c.Config.Vector.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}

	if !c.Config.Redis.Enabled {
		return embedder, nil
	}

	cache, err := embedding.NewRedisCache(ctx, c.Config.Redis.Addr, c.Config.Redis.Password, c.Config.Redis.DB)
	if err != nil {
		c.Logger.Warn("embedding cache disabled", zap.Error(err))
		return embedder, nil
	}
	c.closers = append(c.closers, cache.Close)
	c.Logger.Info("embedding cache enabled", zap.String("addr", c.Config.Redis.Addr))
	return embedding.NewCachedEmbedder(embedder, cache, cfg.Provider+":"+cfg.Model, cfg.CacheTTL, c.Logger), nil
}

func (c *Container) initGenerator(ctx context.Context) (llm.Generator, error) {
	cfg := c.Config.LLM
	if cfg.APIKey == "" {
		c.Logger.Warn("llm api key not set; generation calls will fail")
	}

	switch cfg.Provider {
	case "gemini":
		client, err := llm.NewGeminiClient(ctx, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, client.Close)
		return llm.NewGemini(client, cfg.Model, cfg.Temperature), nil
	case "openai":
		return llm.NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

func (c *Container) initServices() {
	cfg := c.Config
	assembler := prompt.New(cfg.LLM.FirmName)

	c.Clients = service.NewClientService(service.WithClientStore(c.Stores.Clients))
	c.Templates = service.NewTemplateService(service.WithTemplateStore(c.Stores.Templates))
	c.CaseDocs = service.NewCaseDocumentService(
		service.CaseDocWithStore(c.Stores.CaseDocuments),
		service.CaseDocWithClientService(c.Clients),
		service.CaseDocWithStorage(c.Storage),
		service.CaseDocWithLogger(c.Logger),
	)

	c.Retriever = service.NewRetriever(
		service.RetrieverWithEmbedder(c.Embedder),
		service.RetrieverWithIndex(c.Index),
		service.RetrieverWithLogger(c.Logger),
		service.RetrieverWithDefaults(cfg.Retrieval.TopK, cfg.Retrieval.MinScore),
		service.RetrieverWithTimeouts(cfg.Timeouts.Embed, cfg.Timeouts.Index),
	)

	c.Ingestion = service.NewIngestionService(
		service.IngestWithExtractor(extractor.New(cfg.Timeouts.Extract)),
		service.IngestWithEmbedder(c.Embedder),
		service.IngestWithIndex(c.Index),
		service.IngestWithReferenceStore(c.Stores.References),
		service.IngestWithStorage(c.Storage),
		service.IngestWithLogger(c.Logger),
		service.IngestWithTimeouts(cfg.Timeouts),
	)

	c.History = service.NewHistoryService(
		service.HistoryWithConversationStore(c.Stores.Conversations),
		service.HistoryWithLogger(c.Logger),
		service.HistoryWithStoreTimeout(cfg.Timeouts.Store),
		service.HistoryWithDefaultLimit(cfg.Chat.HistoryLimit),
	)

	c.Drafts = service.NewDraftService(
		service.DraftWithClientService(c.Clients),
		service.DraftWithTemplateService(c.Templates),
		service.DraftWithPetitionStore(c.Stores.Petitions),
		service.DraftWithRetriever(c.Retriever),
		service.DraftWithGenerator(c.Generator),
		service.DraftWithAssembler(assembler),
		service.DraftWithLogger(c.Logger),
		service.DraftWithTimeouts(cfg.Timeouts.Generate, cfg.Timeouts.Store),
	)

	c.Chat = service.NewChatService(
		service.ChatWithClientService(c.Clients),
		service.ChatWithHistoryService(c.History),
		service.ChatWithRetriever(c.Retriever),
		service.ChatWithGenerator(c.Generator),
		service.ChatWithAssembler(assembler),
		service.ChatWithLogger(c.Logger),
		service.ChatWithHistoryWindow(cfg.Chat.HistoryWindow),
		service.ChatWithGenerateTimeout(cfg.Timeouts.Generate),
	)

	c.Reindex = service.NewReindexService(
		service.ReindexWithIngestionService(c.Ingestion),
		service.ReindexWithReferenceStore(c.Stores.References),
		service.ReindexWithJobStore(c.Stores.Jobs),
		service.ReindexWithLogger(c.Logger),
		service.ReindexWithLimits(cfg.Reindex.BatchSize, cfg.Reindex.Concurrency),
	)
}

// Close releases connections in reverse order of acquisition
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
