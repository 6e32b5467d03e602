package main

import "github.com/SmileSnow819/natours/cmd/natours/cmd"

func main() {
	cmd.Execute()
}
