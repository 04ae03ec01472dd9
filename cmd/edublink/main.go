package main

import "github.com/edublink/edublink/internal/cli"

func main() {
	cli.Execute()
}
