package main

import (
	"os"

	"docquery/database"
	"docquery/server"

	"github.com/rs/zerolog/log"
)

func main() {
	database.InitDB()
	defer database.CloseDB()

	srv := server.New(database.GetDB(), server.Config{
		SearchFields: map[string][]string{
			"products": {"name", "description"},
			"users":    {"name", "email"},
		},
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := srv.Router().Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
