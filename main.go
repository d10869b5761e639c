package main

import "scorer-backend/cmd"

func main() {
	cmd.Run()
}
