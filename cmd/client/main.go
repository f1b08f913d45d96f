package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/atinyakov/teashop/internal/client"
)

var (
	version   string
	buildDate string
)

// main parses command-line flags and dispatches to the login or shell commands.
func main() {
	var (
		cmd         string
		baseURL     string
		caFile      string
		sessionFile string
		showVer     bool
	)

	flag.StringVar(&cmd, "cmd", "shell", "command: login | shell")
	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&caFile, "ca", "", "path to CA cert for a self-signed server")
	flag.StringVar(&sessionFile, "session", client.DefaultSessionFile, "path to the saved session")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("Tea-shop Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	httpClient, err := client.NewHTTPClient(caFile)
	if err != nil {
		log.Fatal(err)
	}
	session, err := client.LoadSession(sessionFile)
	if err != nil {
		log.Fatal(err)
	}

	api := client.New(baseURL, httpClient)
	if session.BaseURL == baseURL {
		api.Token = session.Token
	}
	saveToken := func(phone, token string) {
		s := &client.Session{BaseURL: baseURL, Phone: phone, Token: token}
		if err := s.Save(sessionFile); err != nil {
			fmt.Println("failed to save session:", err)
		}
	}

	sh := &client.Shell{
		API:     api,
		Prompt:  client.NewPrompter(os.Stdin, os.Stdout),
		Out:     os.Stdout,
		OnLogin: saveToken,
	}

	ctx := context.Background()
	switch cmd {
	case "login":
		if err := sh.Exec(ctx, []string{"login"}); err != nil {
			log.Fatal(err)
		}
	case "shell":
		sh.Run(ctx)
	default:
		log.Fatalf("unknown command: %s", cmd)
	}
}
