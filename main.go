package main

import "github.com/strrl/ticket-extract/internal/cmd"

func main() {
	cmd.Execute()
}
