package main

import (
	"bufio"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"vellum/internal/auth"
)

// handleAdminCommands runs "admin" subcommands and returns for normal
// server startup. Usage: vellum admin adduser <username> <display name>
func handleAdminCommands(db *sql.DB) {
	args := flag.Args()
	if len(args) == 0 || args[0] != "admin" {
		return
	}

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: vellum admin adduser <username> <display name>")
		os.Exit(1)
	}

	switch args[1] {
	case "adduser":
		if len(args) != 4 {
			fmt.Fprintln(os.Stderr, "usage: vellum admin adduser <username> <display name>")
			os.Exit(1)
		}
		username, displayName := args[2], args[3]

		fmt.Print("Password: ")
		password, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			log.Fatal(err)
		}
		password = strings.TrimRight(password, "\r\n")

		service := auth.NewService(auth.NewRepository(db))
		user, err := service.RegisterUser(username, displayName, password)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("created user %s (id %d)\n", user.Username, user.ID)
	default:
		fmt.Fprintf(os.Stderr, "unknown admin command %q\n", args[1])
		os.Exit(1)
	}
}
