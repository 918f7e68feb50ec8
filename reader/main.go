package reader

import (
	"net"
	"net/http"
	"runtime"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	clconfig "github.com/metrico/cloki-config"
	"github.com/metrico/brokerlog/reader/config"
	apirouterv1 "github.com/metrico/brokerlog/reader/router"
	"github.com/metrico/brokerlog/reader/service"
	"github.com/metrico/brokerlog/reader/utils/logger"
	"github.com/metrico/brokerlog/reader/utils/middleware"
)

var ownHttpServer bool = false

func Init(cnf *clconfig.ClokiConfig, app *mux.Router, version string) error {
	config.Cloki = cnf

	//Set to max cpu if the value is equals 0
	if config.Cloki.Setting.SYSTEM_SETTINGS.CPUMaxProcs == 0 {
		runtime.GOMAXPROCS(runtime.NumCPU())
	} else {
		runtime.GOMAXPROCS(config.Cloki.Setting.SYSTEM_SETTINGS.CPUMaxProcs)
	}

	logger.InitLogger()

	if err := config.BrokerQL.ReadEnv(); err != nil {
		return err
	}
	logger.WithFields(logger.LogInfo{
		"labels":          len(config.BrokerQL.Labels),
		"max_query_len":   config.BrokerQL.MaxQueryLength,
		"max_suggestions": config.BrokerQL.MaxSuggestions,
	}).Info("brokerql front end configured")

	if app == nil {
		app = mux.NewRouter()
		ownHttpServer = true
	}

	configureAsHTTPServer(app, version)
	return nil
}

func configureAsHTTPServer(acc *mux.Router, version string) {
	httpURL := func() string {
		stream := jsoniter.ConfigFastest.BorrowStream(nil)
		defer jsoniter.ConfigFastest.ReturnStream(stream)
		stream.WriteRaw(config.Cloki.Setting.HTTP_SETTINGS.Host)
		stream.WriteRaw(":")
		stream.WriteInt64(int64(config.Cloki.Setting.HTTP_SETTINGS.Port))
		return string(stream.Buffer())
	}()
	applyMiddlewares(acc)

	performV1APIRouting(acc, version)

	if ownHttpServer {
		Serve(acc, httpURL)
	}
}

func applyMiddlewares(acc *mux.Router) {
	if !ownHttpServer {
		return
	}
	if config.Cloki.Setting.AUTH_SETTINGS.BASIC.Username != "" &&
		config.Cloki.Setting.AUTH_SETTINGS.BASIC.Password != "" {
		acc.Use(middleware.BasicAuthMiddleware(config.Cloki.Setting.AUTH_SETTINGS.BASIC.Username,
			config.Cloki.Setting.AUTH_SETTINGS.BASIC.Password))
	}
	acc.Use(middleware.AcceptEncodingMiddleware)
	if config.Cloki.Setting.HTTP_SETTINGS.Cors.Enable {
		acc.Use(middleware.CorsMiddleware(config.Cloki.Setting.HTTP_SETTINGS.Cors.Origin))
	}
	acc.Use(middleware.LoggingMiddleware("[{{.status}}] {{.method}} {{.url}} - LAT:{{.latency}}"))
}

// Serve listens on httpURL and blocks serving the router.
func Serve(server *mux.Router, httpURL string) {
	logger.Info("Starting service")
	listener, err := net.Listen("tcp", httpURL)
	if err != nil {
		logger.Error("Error creating listener:", err)
		panic(err)
	}
	logger.Info("Server is listening on ", httpURL)
	if err := http.Serve(listener, server); err != nil {
		logger.Error("Error serving:", err)
		panic(err)
	}
}

func performV1APIRouting(acc *mux.Router, version string) {
	apirouterv1.RouteBrokerQL(acc, service.NewBrokerQLService(config.BrokerQL))
	apirouterv1.RouteMiscApis(acc, version)
}
