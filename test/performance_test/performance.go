package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	vegeta "github.com/tsenart/vegeta/lib"
	"github.com/tsenart/vegeta/lib/plot"

	"github.com/seenhealth/hccinfhir/hcc/samples"
)

var (
	apiHost, proto, endpoint, modelName, reportFilePath string
	freq, duration                                      int
)

func init() {
	flag.StringVar(&apiHost, "host", "localhost:3000", "host to send requests to")
	flag.IntVar(&duration, "duration", 60, "seconds: the total time to run the test")
	flag.IntVar(&freq, "freq", 10, "the number of requests per second")
	flag.StringVar(&proto, "proto", "http", "protocol to use")
	flag.StringVar(&endpoint, "endpoint", "score", "endpoint to attack: score, score-claims, or riskassessment")
	flag.StringVar(&modelName, "model", "CMS-HCC Model V28", "model to request")
	flag.StringVar(&reportFilePath, "report_path", "../../test_results/performance", "where to write the result html")
	flag.Parse()

	if err := os.MkdirAll(reportFilePath, os.ModePerm); err != nil {
		panic(err)
	}
}

func main() {
	targeter, err := makeTarget()
	if err != nil {
		panic(err)
	}

	p := attack(targeter)
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		panic(err)
	}
	writeReport(fmt.Sprintf("%s_api_plot", endpoint), &buf)
}

func makeTarget() (vegeta.Targeter, error) {
	switch endpoint {
	case "score":
		body, err := json.Marshal(map[string]interface{}{
			"diagnosis_codes": []string{"E11.9", "N18.3", "I50.22"},
			"model":           modelName,
			"age":             72,
			"sex":             "F",
		})
		if err != nil {
			return nil, err
		}
		return vegeta.NewStaticTargeter(vegeta.Target{
			Method: "POST",
			URL:    fmt.Sprintf("%s://%s/api/v1/score", proto, apiHost),
			Header: map[string][]string{"Content-Type": {"application/json"}},
			Body:   body,
		}), nil
	case "score-claims":
		eob, err := samples.EOB(2)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(eob)
		if err != nil {
			return nil, err
		}
		return vegeta.NewStaticTargeter(vegeta.Target{
			Method: "POST",
			URL:    fmt.Sprintf("%s://%s/api/v1/score/claims?age=72&sex=F&model=%s",
				proto, apiHost, url.QueryEscape(modelName)),
			Header: map[string][]string{"Content-Type": {"application/json"}},
			Body:   body,
		}), nil
	case "riskassessment":
		return vegeta.NewStaticTargeter(vegeta.Target{
			Method: "GET",
			URL:    fmt.Sprintf("%s://%s/api/v1/riskassessment?codes=E11.9,N18.3&age=72&sex=F&mrn=PERF0001&model=%s",
				proto, apiHost, url.QueryEscape(modelName)),
			Header: map[string][]string{"Accept": {"application/fhir+json"}},
		}), nil
	}
	return nil, fmt.Errorf("unknown endpoint %q", endpoint)
}

func attack(target vegeta.Targeter) *plot.Plot {
	fmt.Printf("attacking %s at %d req/s for %ds\n", endpoint, freq, duration)
	p := plot.New(plot.Title(fmt.Sprintf("apiTest_%s", endpoint)))
	defer p.Close()

	rate := vegeta.Rate{Freq: freq, Per: time.Second}
	attacker := vegeta.NewAttacker()
	for res := range attacker.Attack(target, rate, time.Duration(duration)*time.Second, fmt.Sprintf("%dps:", rate.Freq)) {
		if err := p.Add(res); err != nil {
			panic(err)
		}
	}
	return p
}

func writeReport(name string, buf *bytes.Buffer) {
	if buf.Len() == 0 {
		return
	}
	fn := filepath.Join(reportFilePath, name+".html")
	fmt.Printf("writing report: %s\n", fn)
	if err := os.WriteFile(fn, buf.Bytes(), 0600); err != nil {
		panic(err)
	}
}
