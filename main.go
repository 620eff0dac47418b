package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urfave/cli/v3"

	"PINJAM-backend/docs"
	"PINJAM-backend/internal/asset_mgmt/assets"
	"PINJAM-backend/internal/asset_mgmt/borrowings"
	"PINJAM-backend/internal/asset_mgmt/categories"
	"PINJAM-backend/internal/asset_mgmt/disposals"
	"PINJAM-backend/internal/asset_mgmt/notify"
	"PINJAM-backend/internal/asset_mgmt/reports"
	"PINJAM-backend/internal/asset_mgmt/returns"
	"PINJAM-backend/internal/platform/auth"
	"PINJAM-backend/internal/platform/db"
	"PINJAM-backend/internal/platform/httpx"
	"PINJAM-backend/internal/platform/telemetry"
)

var version = "dev"

func main() {
	// .env は任意
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] .env: %v", err)
	}

	root := &cli.Command{
		Name:    "pinjam",
		Usage:   "asset lending backend",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: db.ConfigFilePath, Usage: "path to config.yaml"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			accountCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, cmd.String("config"))
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTPS API server",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, cmd.String("config"))
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "status", Usage: "print migration status only"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, conn, err := open(cmd.String("config"))
			if err != nil {
				return err
			}
			defer conn.Close()
			if cmd.Bool("status") {
				return db.MigrationStatus(ctx, conn)
			}
			if err := db.RunMigrations(ctx, conn); err != nil {
				return err
			}
			log.Printf("[INFO] migrations applied (%s)", cfg.DB.Driver)
			return nil
		},
	}
}

func accountCommand() *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "manage login accounts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "name", Usage: "display name"},
					&cli.StringFlag{Name: "role", Value: auth.RoleUser, Usage: "admin | manager | staff | user"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, conn, err := open(cmd.String("config"))
					if err != nil {
						return err
					}
					defer conn.Close()
					svc := auth.NewService(conn, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
					if err := svc.Register(ctx, cmd.String("id"), cmd.String("password"), cmd.String("name"), cmd.String("role")); err != nil {
						return err
					}
					fmt.Printf("account %s created (%s)\n", cmd.String("id"), cmd.String("role"))
					return nil
				},
			},
		},
	}
}

func open(path string) (*db.Config, *sql.DB, error) {
	cfg, err := db.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	return cfg, conn, nil
}

func runServer(ctx context.Context, configPath string) error {
	cfg, conn, err := open(configPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	// 動作モード取得
	mode := cfg.Mode
	log.Printf("[INFO] pinjam %s mode:%s", version, mode)
	if mode != "dev" && mode != "release" {
		return fmt.Errorf("mode must be dev or release, got %q", mode)
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or JWT_SECRET) is required")
	}
	log.Printf("[INFO] connected to DB: %s (%s)", cfg.DB.DBName, cfg.DB.Driver)

	if mode == "dev" {
		if err := db.RunMigrations(ctx, conn); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Tracing, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Printf("[WARN] tracing shutdown: %v", err)
		}
	}()

	// 通知: Txコミット後のイベントを websocket とログへ流す
	hub := notify.NewHub()
	dispatcher := notify.NewDispatcher(notify.DefaultQueueSize)
	dispatcher.Subscribe(hub)
	dispatcher.Subscribe(notify.LogSubscriber())
	go dispatcher.Run(ctx)
	defer dispatcher.Close()
	defer hub.Close()

	secret := []byte(cfg.Auth.JWTSecret)
	authSvc := auth.NewService(conn, secret, cfg.Auth.TokenTTL)
	authz := auth.NewRoleAuthorizer(conn)

	registry := assets.NewRegistry()
	catSvc := categories.NewService(conn)
	assetSvc := assets.NewService(conn, registry, catSvc)
	recorder := returns.NewRecorder(conn, registry)
	borrowSvc := borrowings.NewService(conn, registry, recorder, authz, dispatcher)
	returnSvc := returns.NewService(conn, registry, authz)
	disposalSvc := disposals.NewService(conn, registry)
	reportSvc := reports.NewService(conn)

	if mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(httpx.RequestID(), httpx.AccessLog(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", httpx.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", "Location", httpx.RequestIDHeader},
			AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowCredentials: true,
		}))
		docs.SwaggerInfo.Schemes = []string{"https", "http"}
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) {
		if err := conn.PingContext(c.Request.Context()); err != nil {
			c.String(http.StatusServiceUnavailable, "db unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	// /api/v2
	public := r.Group("/api/v2")
	auth.RegisterRoutes(public, authSvc)

	api := r.Group("/api/v2", auth.RequireAuth(secret))
	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	desk := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleManager, auth.RoleStaff))

	categories.RegisterRoutes(api, admin, catSvc)
	assets.RegisterRoutes(api, admin, assetSvc)
	disposals.RegisterRoutes(desk, admin, disposalSvc)
	borrowings.RegisterRoutes(api, borrowSvc)
	returns.RegisterRoutes(api, returnSvc)
	reports.RegisterRoutes(desk, reportSvc)
	notify.RegisterRoutes(api, hub)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// TLS設定
	certFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Cert)
	keyFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Key)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] listening on https://%s", cfg.Server.Addr)
		errCh <- srv.ListenAndServeTLS(certFile, keyFile)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	// Graceful shutdown
	log.Println("[INFO] shutting down...")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
