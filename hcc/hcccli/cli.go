package hcccli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/seenhealth/hccinfhir/hcc/batch"
	"github.com/seenhealth/hccinfhir/hcc/constants"
	"github.com/seenhealth/hccinfhir/hcc/extract"
	"github.com/seenhealth/hccinfhir/hcc/gen"
	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/hcc/monitoring"
	"github.com/seenhealth/hccinfhir/hcc/raf"
	"github.com/seenhealth/hccinfhir/hcc/servicemux"
	"github.com/seenhealth/hccinfhir/hcc/tables"
	"github.com/seenhealth/hccinfhir/hcc/utils"
	"github.com/seenhealth/hccinfhir/hcc/web"
	"github.com/seenhealth/hccinfhir/log"
)

// App Name and usage.  Edit them here to prevent breaking tests
const Name = "hccinfhir"
const Usage = "HCC risk adjustment scoring CLI"

func GetApp() *cli.App {
	return setUpApp()
}

func setUpApp() *cli.App {
	app := cli.NewApp()
	app.Name = Name
	app.Usage = Usage
	app.Version = constants.Version
	app.Before = func(c *cli.Context) error {
		log.SetupLoggers()
		return nil
	}

	var modelName, codes, categories, claimsFile, demoFile, dxFile, outFile, outDir, modelList string
	var sex, dual, orec, crec string
	var age, graftMonths, size int
	var newEnrollee, snp, lowIncome, lti bool

	demographicFlags := func() []cli.Flag {
		return []cli.Flag{
			cli.StringFlag{Name: "model", Value: constants.DefaultModelName, Usage: "Model name; see the models command", Destination: &modelName},
			cli.IntFlag{Name: "age", Usage: "Age in years at scoring", Destination: &age},
			cli.StringFlag{Name: "sex", Usage: "M, F, 1, or 2", Destination: &sex},
			cli.StringFlag{Name: "dual", Usage: "Dual eligibility status code", Destination: &dual},
			cli.StringFlag{Name: "orec", Usage: "Original reason for entitlement code", Destination: &orec},
			cli.StringFlag{Name: "crec", Usage: "Current reason for entitlement code", Destination: &crec},
			cli.BoolFlag{Name: "new-enrollee", Usage: "Score with the new enrollee segment", Destination: &newEnrollee},
			cli.BoolFlag{Name: "snp", Usage: "Member is in a special needs plan", Destination: &snp},
			cli.BoolFlag{Name: "low-income", Usage: "Low income subsidy status", Destination: &lowIncome},
			cli.BoolFlag{Name: "lti", Usage: "Long-term institutionalized", Destination: &lti},
			cli.IntFlag{Name: "graft-months", Usage: "Months since kidney transplant", Destination: &graftMonths},
		}
	}

	scoreOptions := func() raf.ScoreOptions {
		return raf.ScoreOptions{
			ModelName:   modelName,
			Age:         age,
			Sex:         sex,
			DualCode:    dual,
			OREC:        orec,
			CREC:        crec,
			NewEnrollee: newEnrollee,
			SNP:         snp,
			LowIncome:   lowIncome,
			LTI:         lti,
			GraftMonths: graftMonths,
		}
	}

	app.Commands = []cli.Command{
		{
			Name:  "score",
			Usage: "Score a diagnosis code list",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "codes", Usage: "Comma-separated ICD-10 diagnosis codes", Destination: &codes},
			}, demographicFlags()...),
			Action: func(c *cli.Context) error {
				result, err := raf.New(tables.Default()).Score(splitList(codes), scoreOptions())
				if err != nil {
					return err
				}
				return writeJSON(app.Writer, result)
			},
		},
		{
			Name:  "score-categories",
			Usage: "Score an already-mapped condition category list",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "categories", Usage: "Comma-separated condition categories, e.g. 19,138", Destination: &categories},
			}, demographicFlags()...),
			Action: func(c *cli.Context) error {
				result, err := raf.New(tables.Default()).ScoreFromCategories(splitList(categories), scoreOptions())
				if err != nil {
					return err
				}
				return writeJSON(app.Writer, result)
			},
		},
		{
			Name:  "score-claims",
			Usage: "Score the diagnoses extracted from a claims payload",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "file", Usage: "FHIR EOB JSON, NDJSON, or X12 837 file; - reads stdin", Destination: &claimsFile},
			}, demographicFlags()...),
			Action: func(c *cli.Context) error {
				data, err := readInput(claimsFile)
				if err != nil {
					return err
				}
				lines, err := extract.Extract(data)
				if err != nil {
					return err
				}
				result, err := raf.New(tables.Default()).ScoreServiceData(lines, scoreOptions())
				if err != nil {
					return err
				}
				return writeJSON(app.Writer, result)
			},
		},
		{
			Name:  "batch",
			Usage: "Score a cohort from demographics and diagnosis CSVs",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "demographics", Usage: "Cohort demographics CSV", Destination: &demoFile},
				cli.StringFlag{Name: "diagnoses", Usage: "Diagnosis CSV keyed by mrn", Destination: &dxFile},
				cli.StringFlag{Name: "output", Usage: "Result CSV path", Destination: &outFile},
				cli.StringFlag{Name: "models", Usage: "Comma-separated model names; defaults to CMS-HCC Model V28", Destination: &modelList},
			},
			Action: func(c *cli.Context) error {
				ms, err := parseModels(modelList)
				if err != nil {
					return err
				}
				mon := monitoring.GetMonitor()
				txn := mon.Start("cohort-batch")
				defer mon.End(txn)
				res, err := batch.Run(raf.New(tables.Default()), batch.Config{
					DemographicsFile: demoFile,
					DiagnosisFile:    dxFile,
					OutputFile:       outFile,
					Models:           ms,
				})
				if err != nil {
					return err
				}
				return writeJSON(app.Writer, res)
			},
		},
		{
			Name:  "generate-cohort",
			Usage: "Write a synthetic demographics and diagnosis CSV pair",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "size", Value: 100, Usage: "Members to generate", Destination: &size},
				cli.StringFlag{Name: "model", Value: constants.DefaultModelName, Usage: "Model whose mapping table supplies the codes", Destination: &modelName},
				cli.StringFlag{Name: "dir", Usage: "Output directory", Destination: &outDir},
			},
			Action: func(c *cli.Context) error {
				m, err := models.Parse(modelName)
				if err != nil {
					return err
				}
				members := gen.Cohort(size, m, tables.Default())
				demoPath, dxPath, err := gen.WriteCSVs(outDir, members)
				if err != nil {
					return err
				}
				return writeJSON(app.Writer, map[string]string{"demographics": demoPath, "diagnoses": dxPath})
			},
		},
		{
			Name:   "models",
			Usage:  "List the supported model names",
			Action: func(c *cli.Context) error {
				return writeJSON(app.Writer, models.SupportedModels())
			},
		},
		{
			Name:   "serve-api",
			Usage:  "Start the scoring API",
			Action: func(c *cli.Context) error {
				fmt.Fprintf(app.Writer, "%s\n", "Starting hccinfhir API...")

				// Accepts and redirects HTTP requests to HTTPS
				redirect := &http.Server{
					Handler:      web.NewHTTPRouter(),
					Addr:         fmt.Sprintf(":%d", utils.GetEnvInt("HCC_HTTP_REDIRECT_PORT", 3001)),
					ReadTimeout:  5 * time.Second,
					WriteTimeout: 5 * time.Second,
				}
				go func() { logrus.Fatal(redirect.ListenAndServe()) }()

				api := &http.Server{
					Handler:      web.NewAPIRouter(),
					ReadTimeout:  time.Duration(utils.GetEnvInt("API_READ_TIMEOUT", 10)) * time.Second,
					WriteTimeout: time.Duration(utils.GetEnvInt("API_WRITE_TIMEOUT", 20)) * time.Second,
					IdleTimeout:  time.Duration(utils.GetEnvInt("API_IDLE_TIMEOUT", 120)) * time.Second,
				}

				smux := servicemux.New(fmt.Sprintf(":%d", utils.GetEnvInt("HCC_API_PORT", 3000)))
				smux.AddServer(api, "")
				smux.Serve()

				return nil
			},
		},
	}
	return app
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseModels(s string) ([]models.Model, error) {
	var out []models.Model
	for _, name := range splitList(s) {
		m, err := models.Parse(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func readInput(name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(filepath.Clean(name))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
