package main

import (
	"os"

	"github.com/authnd/authnd/app"
)

func main() {
	if err := app.Execute(); err != nil {
		os.Exit(1)
	}
}
