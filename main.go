// The main package for the pagemill executable.
package main

import "github.com/pagemill/pagemill/cmd"

func main() {
	cmd.Execute()
}
