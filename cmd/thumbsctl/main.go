package main

import "img-thumbs/cmd/thumbsctl/commands"

func main() {
	commands.Execute()
}
