package main

import "github.com/TanvirAnzum/tic-tac-toe-server/internal/cli"

func main() {
	cli.Execute()
}
