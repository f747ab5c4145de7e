package main

import "github.com/mlinder314/runscrape/cmd"

func main() {
	cmd.Execute()
}
