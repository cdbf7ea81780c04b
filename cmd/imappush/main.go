package main

import "github.com/aaronromeo/imappush/internal/cli"

func main() {
	cli.Execute()
}
