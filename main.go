package main

import "task-mirror/cmd"

func main() {
	cmd.Execute()
}
