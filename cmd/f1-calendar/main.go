package main

import "github.com/pfrederiksen/f1-calendar/internal/cli"

func main() {
	cli.Execute()
}
