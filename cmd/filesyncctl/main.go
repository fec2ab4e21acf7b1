// Command filesyncctl is the control CLI for a running filesyncd daemon.
package main

import "github.com/dantte-lp/filesyncd/cmd/filesyncctl/commands"

func main() {
	commands.Execute()
}
