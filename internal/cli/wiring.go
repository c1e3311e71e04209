package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"promo-quiz/internal/app"
	"promo-quiz/internal/config"
	"promo-quiz/internal/domain"
	"promo-quiz/internal/infra/file"
	"promo-quiz/internal/infra/kv"
	"promo-quiz/internal/infra/memory"
	pgstore "promo-quiz/internal/infra/postgres"
	redisstore "promo-quiz/internal/infra/redis"
)

// deps is everything a command needs, built once from config.
type deps struct {
	cfg       config.Config
	repo      *kv.Repository
	questions app.QuestionRepository
	service   *app.GameService
	exporter  *app.Exporter
	pool      *pgxpool.Pool
	closers   []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{cfg: cfg}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = redisClient.Close() })
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			d.Close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.pool = pool
		d.closers = append(d.closers, pool.Close)
	}

	backend, err := selectBackend(cfg, redisClient, d.pool)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.repo = kv.NewRepository(backend, cfg.Store.MaxScores)

	loader, err := questionLoader(cfg, d.pool)
	if err != nil {
		d.Close()
		return nil, err
	}
	ttl := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	if redisClient != nil {
		d.questions = redisstore.NewQuestionRepository(redisClient, loader, ttl)
	} else {
		d.questions = memory.NewQuestionRepository(loader, ttl)
	}

	wheel, err := app.NewWheel(cfg.Roulette.Effects, nil)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("roulette config: %w", err)
	}
	d.service = app.NewGameService(d.repo, d.questions, app.Options{
		QuestionSetID: cfg.Questions.Set,
		TimeBudget:    cfg.Quiz.TimePerQuestion,
		Wheel:         wheel,
	})
	d.exporter = app.NewExporter(d.repo, d.questions, cfg.Questions.Set)
	return d, nil
}

func selectBackend(cfg config.Config, redisClient *redis.Client, pool *pgxpool.Pool) (kv.Backend, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		slog.Warn("using in-memory store; data is lost on exit")
		return memory.NewKVStore(), nil
	case "redis":
		if redisClient == nil {
			return nil, errors.New("redis backend selected but redis.addr is empty")
		}
		return redisstore.NewKVStore(redisClient, cfg.Redis.Prefix), nil
	case "postgres":
		if pool == nil {
			return nil, errors.New("postgres backend selected but postgres.url is empty")
		}
		return pgstore.NewKVStore(pool), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// questionLoader resolves sets from the YAML dir, then postgres, then the
// sets built into the binary.
func questionLoader(cfg config.Config, pool *pgxpool.Pool) (memory.QuestionLoader, error) {
	builtin, err := builtinQuestionSets()
	if err != nil {
		return nil, err
	}
	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(builtin)
	if pool != nil {
		loader = chainLoader{primary: pgstore.NewQuestionLoader(pool), fallback: loader}
	}
	if cfg.Questions.Dir != "" {
		loader = file.NewQuestionLoader(cfg.Questions.Dir, loader)
	}
	return loader, nil
}

type chainLoader struct {
	primary  memory.QuestionLoader
	fallback memory.QuestionLoader
}

func (c chainLoader) LoadQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	set, err := c.primary.LoadQuestionSet(ctx, setID)
	if errors.Is(err, domain.ErrQuestionSetNotFound) {
		return c.fallback.LoadQuestionSet(ctx, setID)
	}
	return set, err
}
