package main

import "github.com/supersh-sh/supersh/cmd"

func main() {
	cmd.Execute()
}
