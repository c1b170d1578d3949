// Command auth runs the cognify development auth service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cognify-learn/cognify/internal/auth/app"
	"github.com/cognify-learn/cognify/pkg/authsdk"
)

func main() {
	showVersion := flag.Bool("version", false, "print the build version and exit")
	healthcheck := flag.Bool("healthcheck", false, "probe /livez on the local port and exit non-zero when unhealthy")
	flag.Parse()

	cfg := app.LoadConfig()

	switch {
	case *showVersion:
		fmt.Println(app.BuildVersion)
		return
	case *healthcheck:
		os.Exit(probe(cfg.Port))
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

// probe backs the container HEALTHCHECK; the runtime image has no curl.
func probe(port int) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client := authsdk.NewSDKClient(fmt.Sprintf("http://127.0.0.1:%d", port))
	if _, err := client.GetLiveness(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
