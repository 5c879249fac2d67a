package main

import (
	"os"

	"github.com/duzagac/village-backend/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Error.Println(err)
		os.Exit(1)
	}
}
