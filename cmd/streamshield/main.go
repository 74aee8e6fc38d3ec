package main

import "github.com/streamshield/streamshield/cmd/streamshield/commands"

func main() {
	commands.Execute()
}
