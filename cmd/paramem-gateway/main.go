package main

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/timkado/api/paramem-service/internal/bootstrap"
	"gitlab.com/timkado/api/paramem-service/pkg/contextkeys"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, "app-main")

	app, cleanup, err := bootstrap.InitializeApp(ctx)
	if err != nil {
		// The structured logger is not available until bootstrap succeeds.
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Application run failed: %v\n", err)
		cleanup()
		os.Exit(1)
	}

	cleanup()
	fmt.Println("Application exited gracefully.")
}
