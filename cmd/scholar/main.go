package main

import (
	"context"

	"github.com/Sternrassler/scholar-serp/cmd/scholar/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
