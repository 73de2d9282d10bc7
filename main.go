package main

import (
	"log"

	"ticket-seating/cmd"
	_ "ticket-seating/migrations"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
