package main

import "github.com/pders01/git-splice/cmd"

func main() {
	cmd.Execute()
}
