package main

import (
	"github.com/charmbracelet/log"

	"yashubustudio/simmatch/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal("simmatch failed", "err", err)
	}
}
