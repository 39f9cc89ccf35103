package main

import "fetchbot/cmd"

func main() {
	cmd.Execute()
}
