// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/go-petr/movement-engine/internal/accountdelivery"
	"github.com/go-petr/movement-engine/internal/accountrepo"
	"github.com/go-petr/movement-engine/internal/cardrepo"
	"github.com/go-petr/movement-engine/internal/clientrepo"
	"github.com/go-petr/movement-engine/internal/directdebitdelivery"
	"github.com/go-petr/movement-engine/internal/directdebitrepo"
	"github.com/go-petr/movement-engine/internal/directdebitservice"
	"github.com/go-petr/movement-engine/internal/ledger"
	"github.com/go-petr/movement-engine/internal/locking"
	"github.com/go-petr/movement-engine/internal/memstore"
	"github.com/go-petr/movement-engine/internal/middleware"
	"github.com/go-petr/movement-engine/internal/movementcache"
	"github.com/go-petr/movement-engine/internal/movementdelivery"
	"github.com/go-petr/movement-engine/internal/movementrepo"
	"github.com/go-petr/movement-engine/internal/movementservice"
	"github.com/go-petr/movement-engine/internal/validation"
	"github.com/go-petr/movement-engine/pkg/configpkg"
	"github.com/go-petr/movement-engine/pkg/tokenpkg"
)

// Server holds backends, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Redis  *redis.Client
	Engine *gin.Engine
	Config configpkg.Config

	// Directory is the in-process directory when STORAGE_BACKEND is memory.
	Directory *memstore.Directory

	Movements    *movementservice.Service
	DirectDebits *directdebitservice.Service
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

type accountStore interface {
	validation.AccountDirectory
	ledger.BalanceStore
}

type directDebitStore interface {
	directdebitservice.Repo
	validation.DirectDebitLister
}

type stores struct {
	clients      validation.ClientDirectory
	accounts     accountStore
	cards        validation.CardDirectory
	movements    movementservice.Repo
	directDebits directDebitStore
}

// New creates Server type with instantiated domains and routes.
//
// conn may be nil with the memory storage backend and rdb may be nil with the
// local lock backend, in which case movements are not cached.
func New(conn *sql.DB, rdb *redis.Client, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	server := &Server{
		DB:     conn,
		Redis:  rdb,
		Config: config,
	}

	var st stores

	switch config.StorageBackend {
	case configpkg.StorageMemory:
		d := memstore.NewDirectory()
		server.Directory = d
		st = stores{
			clients:      d,
			accounts:     d,
			cards:        d,
			movements:    memstore.NewMovements(),
			directDebits: memstore.NewDirectDebits(),
		}
	case configpkg.StoragePostgres, "":
		if conn == nil {
			return nil, errors.New("postgres storage requires a database connection")
		}

		st = stores{
			clients:      clientrepo.NewRepoPGS(conn),
			accounts:     accountrepo.NewRepoPGS(conn),
			cards:        cardrepo.NewRepoPGS(conn),
			movements:    movementrepo.NewRepoPGS(conn),
			directDebits: directdebitrepo.NewRepoPGS(conn),
		}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.StorageBackend)
	}

	var locker locking.Locker

	switch config.LockBackend {
	case configpkg.LockRedis:
		if rdb == nil {
			return nil, errors.New("redis lock backend requires a redis client")
		}

		locker = locking.NewRedisLocker(rdb, locking.DefaultRedisOptions())
	case configpkg.LockLocal, "":
		locker = locking.NewTable()
	default:
		return nil, fmt.Errorf("unknown lock backend %q", config.LockBackend)
	}

	if rdb != nil {
		st.movements = movementcache.New(st.movements, rdb, config.MovementCacheTTL)
	}

	tokenMaker, err := tokenpkg.NewMaker(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	pipeline := validation.New(st.clients, st.accounts, st.cards, st.directDebits)
	balances := ledger.New(st.accounts, locker, config.LockTimeout)

	server.Movements = movementservice.New(st.movements, pipeline, balances, st.clients)
	server.DirectDebits = directdebitservice.New(st.directDebits, pipeline, server.Movements, locker, config.LockTimeout)

	accountHandler := accountdelivery.NewHandler(st.accounts)
	movementHandler := movementdelivery.NewHandler(server.Movements)
	directDebitHandler := directdebitdelivery.NewHandler(server.DirectDebits)

	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	accountHandler.Register(authRoutes)
	movementHandler.Register(authRoutes)
	directDebitHandler.Register(authRoutes)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validation.RegisterBindings(v); err != nil {
			return nil, fmt.Errorf("cannot register request validators: %w", err)
		}
	}

	server.Engine = engine

	return server, nil
}
