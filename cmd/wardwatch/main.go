package main

import "github.com/synheart/wardwatch/internal/cli"

func main() {
	cli.Execute()
}
