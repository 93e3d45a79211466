package http

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ClipFusion/internal/shared/transport/http/middleware"
	"ClipFusion/modules/kit/logx"
)

// Options 是 HTTP 服务的可选配置。
type Options struct {
	APIPrefix        string
	CorsAllowOrigins []string
	// Ready 为 /readyz 提供依赖检查（例如缓存 PING），为空时总是就绪。
	Ready func(ctx context.Context) error
}

type Server struct {
	engine *gin.Engine
	group  *gin.RouterGroup
	srv    *nethttp.Server
}

// NewHttpServer 创建 HTTP 服务并安装公共中间件，顺序固定：
// RequestContext -> AccessLog -> Cors -> Errors。
// 业务路由挂在 Group() 上，handler 出错时只需 c.Error(err)。
func NewHttpServer(addr string, engine *gin.Engine, logger logx.Logger, opts Options) *Server {
	if engine == nil {
		engine = gin.New()
	}
	middleware.UseJSONFieldNames()

	engine.Use(middleware.RequestContext())
	engine.Use(middleware.AccessLog(logger))
	engine.Use(middleware.Cors(opts.CorsAllowOrigins))
	engine.Use(middleware.Errors(logger))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		if opts.Ready != nil {
			if err := opts.Ready(c.Request.Context()); err != nil {
				c.JSON(nethttp.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(nethttp.StatusOK, gin.H{"status": "ready"})
	})

	return &Server{
		engine: engine,
		group:  engine.Group(opts.APIPrefix),
		srv: &nethttp.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start 启动 HTTP 服务（阻塞）。关闭时会返回 net/http.ErrServerClosed。
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) Group() *gin.RouterGroup {
	return s.group
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Handler() nethttp.Handler {
	return s.srv.Handler
}

// Registrar 由业务模块实现，把自己的路由挂到 API 分组上。
type Registrar interface {
	HttpRegister(g *gin.RouterGroup)
}
