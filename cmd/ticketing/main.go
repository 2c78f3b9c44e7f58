package main

import (
	"os"
)

// @title Event Ticketing API
// @version 1.0
// @description Event registration with card and crypto payments.
// @BasePath /api/v1
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
