package main

import "github.com/xaenox/emo/internal/cli"

func main() {
	cli.Execute()
}
