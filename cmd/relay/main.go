package main

import (
	"context"
	"flag"
	"log"

	"github.com/brewlink/relay/cmd/relay/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/brewrelay/relay.json", "Path to relay config file")
	flag.Parse()

	return app.Run(context.Background(), app.Options{ConfigPath: *configPath})
}
