package main

import "github.com/danpasecinic/detour/cmd/detour/cmd"

func main() {
	cmd.Execute()
}
