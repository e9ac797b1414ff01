package main

import (
	"github.com/vietddude/guardrail/internal/cli"
)

func main() {
	cli.Execute()
}
