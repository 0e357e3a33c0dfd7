package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"wikishelf/internal/auth"
	"wikishelf/internal/config"
	"wikishelf/internal/db"
	apperrors "wikishelf/internal/errors"
	"wikishelf/internal/logging"
	"wikishelf/internal/repository"
	"wikishelf/internal/service"
	"wikishelf/internal/wikipedia"
)

type options struct {
	Username string
	Email    string
	Password string
	Lang     string
	Titles   []string
}

type result struct {
	Created     int
	Overwritten int
	Failed      int
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(nil)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("database init: %w", err)
	}
	defer func() { _ = db.Close(gormDB) }()
	if err := db.Migrate(gormDB); err != nil {
		return err
	}
	logger.Info("connected to database", zap.String("driver", cfg.DBDriver))

	userRepo := repository.NewUserRepository(gormDB)
	hasher := auth.NewPasswordHasher(auth.DefaultBcryptCost, cfg.HashConcurrency)
	authService := service.NewAuthService(userRepo, auth.NewTokenCodec(cfg.JWTSecret, cfg.TokenTTL), hasher, nil, logger)
	articleService := service.NewArticleService(
		repository.NewArticleRepository(gormDB),
		repository.NewArticleHistoryRepository(gormDB),
		wikipedia.NewClient(cfg.WikipediaEndpoint, cfg.ArticleLinkBase, cfg.WikipediaTimeout),
		logger,
	)

	res, err := seed(context.Background(), authService, articleService, opts, logger)
	if err != nil {
		return err
	}

	logger.Info("seed completed",
		zap.Int("created", res.Created),
		zap.Int("overwritten", res.Overwritten),
		zap.Int("failed", res.Failed),
	)
	return nil
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	fs.StringVar(&opts.Username, "username", "demo", "demo user name")
	fs.StringVar(&opts.Email, "email", "demo@example.com", "demo user email")
	fs.StringVar(&opts.Password, "password", "Demo1234!", "demo user password")
	fs.StringVar(&opts.Lang, "lang", wikipedia.DefaultLang, "Wikipedia language edition")
	fs.StringSliceVar(&opts.Titles, "titles", []string{"Go (programming language)", "Gopher", "Wikipedia"}, "comma separated article titles")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	titles := opts.Titles[:0]
	for _, t := range opts.Titles {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	opts.Titles = titles
	if len(opts.Titles) == 0 {
		return options{}, errors.New("--titles must name at least one article")
	}
	return opts, nil
}

// seed makes sure the demo user exists and downloads every title into its
// library, replacing copies saved by an earlier run.
func seed(ctx context.Context, authService service.AuthService, articles service.ArticleService, opts options, logger *zap.Logger) (result, error) {
	var res result

	if _, err := authService.Register(ctx, opts.Username, opts.Email, opts.Password); err != nil {
		if !errors.Is(err, apperrors.ErrUserAlreadyExists) {
			return res, fmt.Errorf("register demo user: %w", err)
		}
		logger.Info("demo user already exists", zap.String("email", opts.Email))
	}
	login, err := authService.Login(ctx, opts.Email, opts.Password)
	if err != nil {
		return res, fmt.Errorf("login demo user: %w", err)
	}

	for _, title := range opts.Titles {
		article, created, err := articles.Download(ctx, login.User.ID, title, opts.Lang, true)
		if err != nil {
			// keep going so one bad title does not abort the run
			logger.Warn("download failed", zap.String("title", title), zap.Error(err))
			res.Failed++
			continue
		}
		if created {
			res.Created++
		} else {
			res.Overwritten++
		}
		logger.Info("article saved", zap.String("title", article.Title), zap.Bool("created", created))
	}
	return res, nil
}
