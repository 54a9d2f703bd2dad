package main

import (
	"log"

	"github.com/m3rciful/replybot/core/cmd"
)

func main() {
	if err := cmd.Run(cmd.Options{}); err != nil {
		log.Fatal(err)
	}
}
