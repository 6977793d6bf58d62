// Package httpserver exposes the services as the JSON API consumed by the
// web frontend.
package httpserver

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/dmitrijs2005/recipebox/internal/logging"
	"github.com/dmitrijs2005/recipebox/internal/server/config"
	"github.com/dmitrijs2005/recipebox/internal/server/export"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	"github.com/dmitrijs2005/recipebox/internal/server/services"
)

// UserService is the part of services.UserService the handlers use.
type UserService interface {
	Login(ctx context.Context, idToken string) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	AcceptTerms(ctx context.Context, userID string) (*models.User, bool, error)
}

type RecipeService interface {
	Suggest(ctx context.Context, userID, message string) (string, error)
	History(ctx context.Context, userID string) ([]models.Turn, error)
	ClearHistory(ctx context.Context, userID string) error
}

type FavoriteService interface {
	Add(ctx context.Context, userID, title, content string) (*models.Favorite, error)
	List(ctx context.Context, userID string) ([]models.Favorite, error)
	Remove(ctx context.Context, userID string, id int64) (bool, error)
	Export(ctx context.Context, userID string) (*export.Result, error)
}

const shutdownTimeout = 10 * time.Second

type HTTPServer struct {
	address   string
	app       *fiber.App
	users     UserService
	recipes   RecipeService
	favorites FavoriteService
	logger    logging.Logger
	jwtSecret []byte
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, us UserService, rs RecipeService, fs FavoriteService) *HTTPServer {
	s := &HTTPServer{
		address:   cfg.EndpointAddrHTTP,
		users:     us,
		recipes:   rs,
		favorites: fs,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(cfg.SecretKey),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "recipebox",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.accessLog())
	s.app.Use(corsMiddleware(cfg.AllowedOrigins))

	s.routes(cfg.SuggestRateLimit)
	return s
}

func corsMiddleware(origins []string) fiber.Handler {
	allowed := strings.Join(origins, ",")
	// credentials cannot be combined with a wildcard origin
	credentials := allowed != "" && !strings.Contains(allowed, "*")
	if allowed == "" {
		allowed = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:     allowed,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowCredentials: credentials,
	})
}

func (s *HTTPServer) routes(suggestLimit int) {
	s.app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Backend is running with conversational recipe suggestions!")
	})

	s.app.Post("/login/google", s.login)
	s.app.Post("/auth/refresh", s.refresh)
	s.app.Post("/logout", s.logout)

	authed := s.requireUser()
	gated := []fiber.Handler{authed, requireTerms()}

	s.app.Get("/me", authed, s.me)
	s.app.Post("/terms/accept", authed, s.acceptTerms)

	suggest := append(append([]fiber.Handler{}, gated...), rateLimitSuggest(suggestLimit), s.suggest)
	s.app.Post("/suggest_recipe", suggest...)
	s.app.Post("/clear_history", authed, s.clearHistory)
	s.app.Get("/history", authed, s.history)

	fav := s.app.Group("/favorites", gated...)
	fav.Get("/", s.listFavorites)
	fav.Post("/", s.addFavorite)
	fav.Delete("/", s.removeFavorite)
	fav.Post("/export", s.exportFavorites)
	fav.Delete("/:id", s.removeFavorite)
}

// App returns the underlying fiber app, mainly for tests.
func (s *HTTPServer) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled and then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(sctx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	return s.app.Listener(listen)
}
