package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"palisade/internal/config"
	"palisade/internal/domain"
	"palisade/internal/infra/auth/oidc"
	"palisade/internal/infra/auth/policy"
	"palisade/internal/infra/auth/rbac"
	"palisade/internal/infra/db"
	"palisade/internal/infra/memstore"
	"palisade/internal/infra/ratelimit"
	"palisade/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports store reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg config.Config
	r   *gin.Engine
	log *zap.Logger

	store *db.Store

	products   *usecase.ProductService
	auditQuery *usecase.AuditQuery
	health     Pinger

	authenticator domain.Authenticator
	authInitErr   error

	rateLimiter          domain.RateLimiter
	rateLimitRequests    int
	rateLimitWindow      time.Duration
	rateLimitWithSubject bool
	rateLimitFailClosed  bool
}

func NewServer(cfg config.Config, store *db.Store, log *zap.Logger) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{cfg: cfg, store: store, r: r, log: log}
	s.initDeps()
	s.routes()
	return s
}

// ServerDeps lets tests and alternative wirings inject every collaborator
// directly.
type ServerDeps struct {
	Products      *usecase.ProductService
	AuditQuery    *usecase.AuditQuery
	Health        Pinger
	Authenticator domain.Authenticator
	RateLimiter   domain.RateLimiter
	Log           *zap.Logger
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:           cfg,
		r:             r,
		log:           deps.Log,
		products:      deps.Products,
		auditQuery:    deps.AuditQuery,
		health:        deps.Health,
		authenticator: deps.Authenticator,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.initRateLimit(deps.RateLimiter)
	s.initAuth()
	s.routes()
	return s
}

func (s *Server) initDeps() {
	var (
		productStore usecase.ProductStore
		auditStore   usecase.AuditStore
		health       Pinger
	)
	if s.store != nil && s.store.DB != nil {
		productStore = db.NewProductRepository(s.store.DB)
		auditRepo := db.NewAuditEntryRepository(s.store.DB)
		auditStore = auditRepo
		health = s.store
	} else {
		productStore = memstore.NewProductStore()
		memAudit := memstore.NewAuditStore()
		auditStore = memAudit
		health = memAudit
	}

	authorizer := rbac.NewAuthorizer()
	if s.cfg.PolicyBundlePath != "" {
		engine, err := policy.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath, s.cfg.PolicyBundleID)
		if err != nil {
			s.authInitErr = err
			return
		}
		authorizer.Policy = engine
	}

	recorder := usecase.NewAuditRecorder(auditStore, nil, s.cfg.ServiceName, s.cfg.AuditMaxPayloadBytes)
	guard := usecase.NewProductGuard(productStore)

	s.products = usecase.NewProductService(guard, authorizer, recorder, nil, s.log)
	s.auditQuery = usecase.NewAuditQuery(auditStore)
	s.health = health

	s.initRateLimit(nil)
	s.initAuth()
}

func (s *Server) initAuth() {
	if s.cfg.AuthMode == "" {
		s.authInitErr = errors.New("AUTH_MODE is required")
		return
	}
	switch s.cfg.AuthMode {
	case "none":
		return
	case "oidc":
		if s.authenticator != nil {
			return
		}
		authenticator, err := oidc.NewAuthenticator(s.cfg, oidc.WithLogger(s.log))
		if err != nil {
			s.authInitErr = err
			return
		}
		s.authenticator = authenticator
	default:
		s.authInitErr = errors.New("unsupported auth mode")
	}
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisLimiterConfig{
				Addr:     s.cfg.RedisAddr,
				Password: s.cfg.RedisPassword,
				DB:       s.cfg.RedisDB,
			}); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitWithSubject = s.cfg.RateLimitIncludeSubject
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealthz)

	api := s.r.Group("/api", s.identity(), s.rateLimit())
	{
		api.POST("/products", s.handleCreateProduct)
		api.GET("/products", s.handleListProducts)
		api.GET("/products/:id", s.handleGetProduct)
		api.PUT("/products/:id", s.handleUpdateProduct)
		api.DELETE("/products/:id", s.handleDeleteProduct)

		api.GET("/audit/entries", s.handleListAuditEntries)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Run() error {
	if s.authInitErr != nil {
		return s.authInitErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.r
}
