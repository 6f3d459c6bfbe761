package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

type roomService interface {
	CreateRoom(ctx context.Context, name, creatorID string) (*entity.Room, error)
	DeleteRoom(ctx context.Context, roomID, requesterID string) error
	JoinRoom(ctx context.Context, roomID, userID string, seat entity.Seat) (*entity.Room, error)
	ResetRoom(ctx context.Context, roomID, requesterID string) (*entity.Room, error)
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
	ListRooms(ctx context.Context, skip, limit int, oldestFirst bool) ([]entity.RoomSummary, error)
}

type userService interface {
	CreateUser(ctx context.Context, username, password, email, phone string) (*entity.User, error)
	GetUser(ctx context.Context, id string) (*entity.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
}

type Server struct {
	logger        *slog.Logger
	rooms         roomService
	users         userService
	allowedOrigin string

	srv *http.Server
}

func New(logger *slog.Logger, rooms roomService, users userService, allowedOrigin string) *Server {
	return &Server{
		logger:        logger.With("component", "rest"),
		rooms:         rooms,
		users:         users,
		allowedOrigin: allowedOrigin,
	}
}

// Handler - the gin engine with every route registered.
func (that *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), that.requestLogger(), that.cors(), identity())

	router.GET("/ping", pingHandler)

	router.GET("/rooms", that.listRooms)
	router.POST("/rooms", requireUser(), that.createRoom)
	router.GET("/room/:id", requireUser(), that.getRoom)
	router.DELETE("/room/:id", requireUser(), that.deleteRoom)
	router.POST("/room/:id/reset", requireUser(), that.resetRoom)
	router.POST("/joinroom/:id", requireUser(), that.joinRoom)

	router.POST("/user", that.createUser)
	router.GET("/user/:id", that.getUser)
	router.GET("/user/byusername/:username", that.getUserByUsername)

	return router
}

// Start - starts REST server.
func (that *Server) Start(port string) error {
	that.srv = &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	if err := that.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Shutdown(ctx context.Context) error {
	if that.srv == nil {
		return nil
	}

	return that.srv.Shutdown(ctx)
}

func (that *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		that.logger.Debug("request served",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (that *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", that.allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if that.allowedOrigin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
