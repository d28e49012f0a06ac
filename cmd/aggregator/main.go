package main

import (
	"os"

	"rss_aggregator/internal/logger"
)

func main() {
	if err := RootApp().Run(os.Args); err != nil {
		logger.Log.Fatal(err)
	}
}
