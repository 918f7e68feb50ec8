package apirouterv1

import (
	"github.com/gorilla/mux"
	controllerv1 "github.com/metrico/brokerlog/reader/controller"
)

func RouteMiscApis(app *mux.Router, version string) {
	m := &controllerv1.MiscController{
		Version: version,
	}
	app.HandleFunc("/api/v1/status/buildinfo", m.Buildinfo).Methods("GET")
}
