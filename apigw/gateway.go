package apigw

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"s3authn/logger"
)

// Gateway представляет модуль API Gateway
type Gateway struct {
	config         Config
	handler        RequestHandler
	parser         *RequestParser
	responseWriter *ResponseWriter
	router         chi.Router
	server         *http.Server
	metrics        *Metrics
}

// New создает новый экземпляр API Gateway
func New(config Config, handler RequestHandler) *Gateway {
	gw := &Gateway{
		config:         config,
		handler:        handler,
		parser:         NewRequestParser(config.MaxBodyBytes),
		responseWriter: NewResponseWriter(),
		metrics:        getMetrics(),
	}
	gw.router = gw.routes()
	gw.server = &http.Server{
		Handler:      gw,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return gw
}

func (gw *Gateway) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if len(gw.config.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: gw.config.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Post("/tokens", gw.serveTokens)
	r.Post("/v2.0/tokens", gw.serveTokens)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		gw.write(w, r, time.Now(), &TokenResponse{
			StatusCode: http.StatusNotFound,
			Body: ItemNotFoundEnvelope{ItemNotFound: Fault{
				Code:    strconv.Itoa(http.StatusNotFound),
				Message: "The resource could not be found.",
			}},
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		gw.write(w, r, time.Now(), &TokenResponse{
			Error: fmt.Errorf("%w: method %s is not allowed on %s", ErrBadRequest, r.Method, r.URL.Path),
		})
	})
	return r
}

// ServeHTTP реализует интерфейс http.Handler
func (gw *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gw.router.ServeHTTP(w, r)
}

func (gw *Gateway) serveTokens(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.Info("Incoming request: %s %s [%s]", r.Method, r.URL.Path, middleware.GetReqID(r.Context()))

	req, err := gw.parser.Parse(w, r)
	if err != nil {
		logger.Warn("Failed to parse request: %v", err)
		gw.write(w, r, start, &TokenResponse{Error: err})
		return
	}

	resp := gw.handler.Handle(req)
	gw.write(w, r, start, resp)
}

func (gw *Gateway) write(w http.ResponseWriter, r *http.Request, start time.Time, resp *TokenResponse) {
	status, err := gw.responseWriter.WriteResponse(w, resp)
	if err != nil {
		logger.Error("Failed to write response: %v", err)
	}

	logger.Info("Response sent: %d, %.3f ms", status, float64(time.Since(start).Microseconds())/1000.0)

	gw.metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
	gw.metrics.RequestLatency.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
}

// Start запускает сервер и блокируется до его остановки
func (gw *Gateway) Start() error {
	ln, err := net.Listen("tcp", gw.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", gw.config.ListenAddress, err)
	}
	return gw.Serve(ln)
}

// Serve обслуживает запросы на готовом listener'е
func (gw *Gateway) Serve(ln net.Listener) error {
	logger.Info("Starting API Gateway on %s", ln.Addr())

	var err error
	if gw.config.TLSCertFile != "" && gw.config.TLSKeyFile != "" {
		logger.Info("Starting HTTPS server with TLS")
		err = gw.server.ServeTLS(ln, gw.config.TLSCertFile, gw.config.TLSKeyFile)
	} else {
		logger.Info("Starting HTTP server")
		err = gw.server.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop останавливает сервер
func (gw *Gateway) Stop(ctx context.Context) error {
	logger.Info("Stopping API Gateway...")
	return gw.server.Shutdown(ctx)
}
