package main

import "github.com/gridlens/gridlens/cmd"

func main() {
	cmd.Execute()
}
