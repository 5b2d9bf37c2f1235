package main

import (
	"os"

	"hotissue.kr/ember/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
