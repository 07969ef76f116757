// The main package for the pagewatch executable.
package main

import "github.com/JakeFAU/pagewatch/cmd"

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
