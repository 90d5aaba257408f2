package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/factlens/factlens/config"
	"github.com/factlens/factlens/internal/collab"
	"github.com/factlens/factlens/internal/content"
	"github.com/factlens/factlens/internal/investigation"
	"github.com/factlens/factlens/internal/llm"
	"github.com/factlens/factlens/internal/spans"
	"github.com/factlens/factlens/internal/store"
	"github.com/factlens/factlens/internal/telemetry"
)

// Server bundles the pipeline components behind the HTTP API. History and
// caching are optional: a nil store disables the history endpoints, a nil
// verify cache just skips memoization.
type Server struct {
	cfg         *config.Config
	extractor   *content.Extractor
	classifier  *investigation.Classifier
	orch        *investigation.Orchestrator
	analyzer    *spans.Analyzer
	store       *store.Store
	index       *store.Index
	verifyCache *store.VerifyCache
	preview     *gocache.Cache
	scraper     collab.TweetScraper
	tiktok      collab.TikTokResolver
	telemetry   *telemetry.Telemetry
	logger      *log.Logger
}

// Run wires all dependencies from config and serves until the listener fails.
func Run(cfg *config.Config) error {
	tel := telemetry.New(cfg.Telemetry)

	provider, err := llm.NewOpenAIProvider(cfg.LLM, tel)
	if err != nil {
		return err
	}
	searcher, err := collab.NewSearcher(cfg.Search)
	if err != nil {
		return err
	}

	social := collab.NewHTTPClient(cfg.Fetch.Timeout, 2, 0).WithRateLimit(cfg.Social.RequestsPerSecond)
	scraper := collab.NewSyndicationScraper(cfg.Social, social)
	tiktok := collab.NewTikwmResolver(cfg.Social, social, provider)
	fetcher := collab.NewReadabilityFetcher(cfg.Fetch)

	extractor := content.NewExtractor(scraper, tiktok, fetcher, nil, cfg.General.ExtractionTimeout)
	classifier := investigation.NewClassifier(provider, tel)
	analyzer := spans.NewAnalyzer(provider, searcher, cfg.General.MaxAnalyzedChars, tel)
	toolbox := investigation.NewToolbox(searcher, analyzer, provider)
	orch := investigation.NewOrchestrator(provider, toolbox, tel, cfg.General.MaxInvestigationTime)

	srv := &Server{
		cfg:        cfg,
		extractor:  extractor,
		classifier: classifier,
		orch:       orch,
		analyzer:   analyzer,
		preview:    gocache.New(5*time.Minute, 10*time.Minute),
		scraper:    scraper,
		tiktok:     tiktok,
		telemetry:  tel,
		logger:     log.New(log.Writer(), "[SERVER] ", log.LstdFlags),
	}

	if cfg.Storage.Postgres.Configured() {
		st, err := store.New(cfg.Storage.Postgres.DSN())
		if err != nil {
			return err
		}
		srv.store = st
		idx, err := store.NewIndex()
		if err != nil {
			return err
		}
		// The index is in-memory, so existing history must be reindexed or
		// search misses everything written before this process started.
		records, err := st.AllRecords(context.Background())
		if err != nil {
			return err
		}
		if err := idx.Rebuild(records); err != nil {
			return err
		}
		srv.index = idx
	} else {
		srv.logger.Printf("postgres not configured, history endpoints disabled")
	}

	if cfg.Storage.Redis.Configured() {
		vc, err := store.NewVerifyCache(cfg.Storage.Redis.Addr(), cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Storage.VerifyCacheTTL)
		if err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
		srv.verifyCache = vc
	}

	if cfg.Retention.Enabled && srv.store != nil {
		sweeper, err := NewRetentionSweeper(srv.store, srv.index, cfg.Retention)
		if err != nil {
			return err
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	e := srv.Echo()
	srv.logger.Printf("listening on %s", cfg.General.Listen)
	return e.Start(cfg.General.Listen)
}

// Echo builds the routed echo instance. Split from Run for tests.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	api := e.Group("/api")
	api.POST("/investigate", s.investigate)
	api.POST("/analyze-text", s.analyzeText)
	api.POST("/verify-claim", s.verifyClaim)
	api.POST("/preview", s.previewURL)

	if s.store != nil {
		secret := []byte(s.cfg.General.JWTSecret)
		auth := &AuthHandler{Store: s.store, Secret: secret}
		auth.Register(api.Group("/auth"))

		hh := &HistoryHandler{Store: s.store, Index: s.index}
		hh.Register(api.Group("/history", AuthMiddleware(secret)))
	}
	return e
}
