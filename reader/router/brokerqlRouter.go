package apirouterv1

import (
	"github.com/gorilla/mux"
	controllerv1 "github.com/metrico/brokerlog/reader/controller"
	"github.com/metrico/brokerlog/reader/service"
)

func RouteBrokerQL(app *mux.Router, svc *service.BrokerQLService) {
	ctrl := &controllerv1.BrokerQLController{
		Service: svc,
	}
	app.HandleFunc("/api/v1/brokerql/parse", ctrl.Parse).Methods("GET", "POST")
	app.HandleFunc("/api/v1/brokerql/filter", ctrl.Filter).Methods("GET", "POST")
	app.HandleFunc("/api/v1/brokerql/tokens", ctrl.Tokens).Methods("GET", "POST")
	app.HandleFunc("/api/v1/brokerql/suggest", ctrl.Suggest).Methods("GET", "POST")
	app.HandleFunc("/api/v1/brokerql/presets", ctrl.Presets).Methods("GET")
	app.HandleFunc("/api/v1/brokerql/presets/{name}", ctrl.Preset).Methods("GET")
}
