package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"vellum/internal/auth"
	"vellum/internal/database"
	"vellum/internal/web"
)

func main() {
	var dsn = flag.String("dsn", "vellum.db", "The database connection string.")
	var addr = flag.String("addr", ":8080", "The address to listen on.")
	flag.Parse()

	db, err := database.New(*dsn)
	if err != nil {
		log.Fatal(err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	log.Println("database migrated")

	handleAdminCommands(db)

	if len(flag.Args()) > 0 && flag.Arg(0) == "admin" {
		os.Exit(0)
	}

	sessionKey := os.Getenv("VELLUM_SESSION_KEY")
	if err := auth.InitSessionStore(sessionKey); err != nil {
		log.Fatal(err)
	}

	server := web.NewServer(db, web.LoadTemplates())

	log.Println("starting server on " + *addr)
	if err := http.ListenAndServe(*addr, server); err != nil {
		log.Fatal(err)
	}
}
