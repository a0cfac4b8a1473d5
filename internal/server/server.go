package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/idadmin/internal/audit/domain"
	authdomain "github.com/smallbiznis/idadmin/internal/auth/domain"
	"github.com/smallbiznis/idadmin/internal/auth/session"
	"github.com/smallbiznis/idadmin/internal/authorization"
	clientdomain "github.com/smallbiznis/idadmin/internal/client/domain"
	"github.com/smallbiznis/idadmin/internal/clock"
	"github.com/smallbiznis/idadmin/internal/config"
	grantdomain "github.com/smallbiznis/idadmin/internal/grant/domain"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
	"github.com/smallbiznis/idadmin/internal/observability"
	obsmiddleware "github.com/smallbiznis/idadmin/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/idadmin/internal/observability/metrics"
	obstracing "github.com/smallbiznis/idadmin/internal/observability/tracing"
	sessiondomain "github.com/smallbiznis/idadmin/internal/serversession/domain"
	useradmindomain "github.com/smallbiznis/idadmin/internal/useradmin/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) (*gin.Engine, error) {
	htmlRender, err := newHTMLRender()
	if err != nil {
		return nil, err
	}
	registerFormTagNames()

	r := gin.New()
	r.HTMLRender = htmlRender
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r, nil
}

type ginParams struct {
	fx.In

	ObsCfg      observability.Config
	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
}

func registerGin(p ginParams) (*gin.Engine, error) {
	return NewEngine(p.ObsCfg, p.HTTPMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	clock        clock.Clock
	authsvc      authdomain.Service
	sessions     *session.Manager
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	clientSvc    clientdomain.Service
	userAdminSvc useradmindomain.Service
	users        identitydomain.UserStore
	roles        identitydomain.RoleStore
	grants       grantdomain.Store
	sessionStore sessiondomain.Store
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Clock        clock.Clock
	Authsvc      authdomain.Service
	Sessions     *session.Manager
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	ClientSvc    clientdomain.Service
	UserAdminSvc useradmindomain.Service
	Users        identitydomain.UserStore
	Roles        identitydomain.RoleStore
	Grants       grantdomain.Store
	SessionStore sessiondomain.Store `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		clock:        p.Clock,
		authsvc:      p.Authsvc,
		sessions:     p.Sessions,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		clientSvc:    p.ClientSvc,
		userAdminSvc: p.UserAdminSvc,
		users:        p.Users,
		roles:        p.Roles,
		grants:       p.Grants,
		sessionStore: p.SessionStore,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerAccountRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAccountRoutes() {
	account := s.engine.Group("/account")
	account.Use(s.LoadPrincipal())

	account.GET("/login", s.LoginPage)
	account.POST("/login", s.Login)
	account.POST("/logout", s.Logout)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.LoadPrincipal())
	admin.Use(s.RequireAuth())

	adminOnly := s.RequireRole(authorization.RoleAdmin)

	admin.GET("", adminOnly, s.AdminIndex)
	admin.GET("/accounts", adminOnly, s.ListAccounts)
	admin.GET("/audit", adminOnly, s.ListAuditLogs)

	clients := admin.Group("/clients", adminOnly)
	{
		clients.GET("", s.ListClients)
		clients.GET("/:id", s.EditClientPage)
		clients.POST("/:id", s.EditClient)
	}

	roles := admin.Group("/roles", adminOnly)
	{
		roles.GET("", s.ListRoles)
		roles.GET("/:roleId", s.EditRolePage)
		roles.POST("/:roleId/add-user", s.AddUserToRole)
		roles.POST("/:roleId/remove-user", s.RemoveUserFromRole)
	}

	users := admin.Group("/users")
	{
		users.GET("", s.RequirePolicy(authorization.UsersRead), s.ListUsers)
		users.GET("/create", s.RequirePolicy(authorization.UsersWrite), s.CreateUserPage)
		users.POST("/create", s.RequirePolicy(authorization.UsersWrite), s.CreateUser)
		users.GET("/:userId", s.EditUserPage)
		users.POST("/:userId/:handler", s.EditUser)
	}
}

func (s *Server) registerFallback() {
	s.engine.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/admin")
	})
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
