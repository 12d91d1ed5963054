package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/seenhealth/hccinfhir/hcc/hcccli"
)

func main() {
	if err := hcccli.GetApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
