package main

import (
	"context"
	"log"

	"github.com/tfmagician/mi-users/internal/cli"
	"github.com/tfmagician/mi-users/internal/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
