package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	clconfig "github.com/metrico/cloki-config"
	"github.com/metrico/brokerlog/reader"
	"github.com/metrico/brokerlog/reader/utils/middleware"
	"github.com/metrico/brokerlog/shared/commonroutes"
)

var version = "dev"

var appFlags CommandLineFlags

// params for Flags
type CommandLineFlags struct {
	ShowHelpMessage *bool   `json:"help"`
	ShowVersion     *bool   `json:"version"`
	ConfigPath      *string `json:"config_path"`
}

/* init flags */
func initFlags() {
	appFlags.ShowHelpMessage = flag.Bool("help", false, "show help")
	appFlags.ShowVersion = flag.Bool("version", false, "show version")
	appFlags.ConfigPath = flag.String("config", "", "the path to the config file")
	flag.Parse()
}

func portEnv(cfg *clconfig.ClokiConfig) error {
	if os.Getenv("BROKERQL_LOGIN") != "" {
		cfg.Setting.AUTH_SETTINGS.BASIC.Username = os.Getenv("BROKERQL_LOGIN")
	}
	if os.Getenv("BROKERQL_PASSWORD") != "" {
		cfg.Setting.AUTH_SETTINGS.BASIC.Password = os.Getenv("BROKERQL_PASSWORD")
	}
	if os.Getenv("CORS_ALLOW_ORIGIN") != "" {
		cfg.Setting.HTTP_SETTINGS.Cors.Enable = true
		cfg.Setting.HTTP_SETTINGS.Cors.Origin = os.Getenv("CORS_ALLOW_ORIGIN")
	}
	if os.Getenv("PORT") != "" {
		port, err := strconv.Atoi(os.Getenv("PORT"))
		if err != nil {
			return fmt.Errorf("invalid port number: %w", err)
		}
		cfg.Setting.HTTP_SETTINGS.Port = port
	}
	if os.Getenv("HOST") != "" {
		cfg.Setting.HTTP_SETTINGS.Host = os.Getenv("HOST")
	}
	if cfg.Setting.HTTP_SETTINGS.Host == "" {
		cfg.Setting.HTTP_SETTINGS.Host = "0.0.0.0"
	}
	if cfg.Setting.HTTP_SETTINGS.Port == 0 {
		cfg.Setting.HTTP_SETTINGS.Port = 3120
	}
	return nil
}

func main() {
	initFlags()
	if *appFlags.ShowHelpMessage {
		flag.Usage()
		return
	}
	if *appFlags.ShowVersion {
		fmt.Println(version)
		return
	}
	var configPaths []string
	if _, err := os.Stat(*appFlags.ConfigPath); err == nil {
		configPaths = append(configPaths, *appFlags.ConfigPath)
	}
	cfg := clconfig.New(clconfig.CLOKI_READER, configPaths, "", "")

	cfg.ReadConfig()

	err := portEnv(cfg)
	if err != nil {
		panic(err)
	}

	app := mux.NewRouter()
	if cfg.Setting.AUTH_SETTINGS.BASIC.Username != "" &&
		cfg.Setting.AUTH_SETTINGS.BASIC.Password != "" {
		app.Use(middleware.BasicAuthMiddleware(cfg.Setting.AUTH_SETTINGS.BASIC.Username,
			cfg.Setting.AUTH_SETTINGS.BASIC.Password))
	}
	app.Use(middleware.AcceptEncodingMiddleware)
	if cfg.Setting.HTTP_SETTINGS.Cors.Enable {
		app.Use(middleware.CorsMiddleware(cfg.Setting.HTTP_SETTINGS.Cors.Origin))
	}
	app.Use(middleware.LoggingMiddleware("[{{.status}}] {{.method}} {{.url}} - LAT:{{.latency}}"))
	commonroutes.RegisterCommonRoutes(app, version)

	if err := reader.Init(cfg, app, version); err != nil {
		panic(err)
	}

	httpURL := fmt.Sprintf("%s:%d", cfg.Setting.HTTP_SETTINGS.Host, cfg.Setting.HTTP_SETTINGS.Port)
	reader.Serve(app, httpURL)
}
