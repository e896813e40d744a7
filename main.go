package main

import "github.com/hmans/catalog/cmd"

func main() {
	cmd.Execute()
}
