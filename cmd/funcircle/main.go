package main

import (
	"log"

	"github.com/tradepost/funcircle/cmd/funcircle/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}
