package main

import "noticeboard/cmd"

func main() {
	cmd.Execute()
}
