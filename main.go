package main

import "todoapi/cmd"

func main() {
	cmd.Execute()
}
