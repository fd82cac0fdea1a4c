package main

import "studyhall/cmd"

func main() {
	cmd.Execute()
}
