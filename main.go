package main

import "github.com/Daskott/guardian/cmd"

func main() {
	cmd.Execute()
}
