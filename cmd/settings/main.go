package main

import (
	"log"

	tool "github.com/sandeepkv93/cms-admin-backend/internal/tools/settings"
)

func main() {
	if err := tool.NewRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
