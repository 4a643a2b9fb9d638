// Command listingclean cleans listing CSV exports and loads them into the
// warehouse. It runs once against local files or stored objects, or as an
// HTTP trigger server.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Values already in the environment win over .env
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	os.Exit(Execute())
}
