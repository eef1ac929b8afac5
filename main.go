// Command modtask discovers and manages the tasks of configuration modules.
package main

import "github.com/twiced-technology-gmbh/modtask/cmd"

func main() {
	cmd.Execute()
}
