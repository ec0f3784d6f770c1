package main

import (
	"os"

	"agora/cmd"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	_ "golang.org/x/crypto/x509roots/fallback" // We need this to make TLS work in scratch containers
)

func main() {
	// A missing .env file is fine, flags and the environment still apply
	_ = godotenv.Load()

	if err := cmd.RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
