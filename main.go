package main

import "github.com/guimove/capviz/cmd"

func main() {
	cmd.Execute()
}
