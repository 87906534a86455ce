package main

import (
	"log"
	"time"

	_ "github.com/anoixa/image-theatre/docs"

	"github.com/anoixa/image-theatre/config"

	"github.com/anoixa/image-theatre/cmd"
)

func init() {
	var cstZone = time.FixedZone("CST", 8*3600) // 东八
	time.Local = cstZone
}

// @title                       Image Theatre API
// @version                     1.0
// @description                 Movie catalog with authors, poster images and attachment history.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	log.Printf("image theatre %s (%s)", config.Version, config.CommitHash)
	cmd.Execute()
}
