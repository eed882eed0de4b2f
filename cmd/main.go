package main

import (
	"context"
	"os"

	"github.com/okian/bjjscore/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:]))
}
