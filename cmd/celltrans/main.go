package main

import (
	"os"

	"horse.fit/celltrans/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
