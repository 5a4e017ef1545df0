package main

import "athlos-backend/cmd"

func main() {
	cmd.Run()
}
