package main

import "github.com/isabelamendes/case-tecnico-oto/cmd"

func main() {
	cmd.Execute()
}
