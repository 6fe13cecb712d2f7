package main

import "github.com/Norgate-AV/lazydi/cmd"

func main() {
	cmd.Execute()
}
