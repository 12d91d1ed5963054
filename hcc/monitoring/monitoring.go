package monitoring

import (
	"fmt"
	"net/http"

	"github.com/newrelic/go-agent/v3/integrations/nrlogrus"
	newrelic "github.com/newrelic/go-agent/v3/newrelic"
	log "github.com/sirupsen/logrus"

	"github.com/seenhealth/hccinfhir/conf"
)

var a *apm

type apm struct {
	App *newrelic.Application
}

// GetMonitor returns the process-wide New Relic wrapper. The agent only
// reports when NEW_RELIC_LICENSE_KEY is configured; otherwise every method
// degrades to a passthrough.
func GetMonitor() *apm {
	if a == nil {
		target := conf.GetEnv("DEPLOYMENT_TARGET")
		if target == "" {
			target = "local"
		}
		app, err := newrelic.NewApplication(
			newrelic.ConfigAppName(fmt.Sprintf("hccinfhir-%s", target)),
			newrelic.ConfigLicense(conf.GetEnv("NEW_RELIC_LICENSE_KEY")),
			newrelic.ConfigEnabled(conf.GetEnv("NEW_RELIC_LICENSE_KEY") != ""),
			nrlogrus.ConfigStandardLogger(),
			func(cfg *newrelic.Config) {
				cfg.HighSecurity = true
			},
		)
		if err != nil {
			log.Error(err)
		}
		a = &apm{
			App: app,
		}
	}
	return a
}

func (a *apm) WrapHandler(pattern string, h http.HandlerFunc) (string, func(http.ResponseWriter, *http.Request)) {
	if a.App != nil {
		return newrelic.WrapHandleFunc(a.App, pattern, h)
	}
	return pattern, h
}

// Start opens a transaction for non-HTTP work (batch runs, table refresh).
// Safe to use with a nil app; the returned transaction may be nil and v3
// transaction methods tolerate that.
func (a *apm) Start(name string) *newrelic.Transaction {
	if a.App != nil {
		return a.App.StartTransaction(name)
	}
	return nil
}

func (a *apm) End(txn *newrelic.Transaction) {
	txn.End()
}
