package main

import "github.com/frahmantamala/key-management/cmd"

func main() {
	cmd.Execute()
}
