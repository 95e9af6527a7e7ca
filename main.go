package main

import "github.com/frahmantamala/lab-borrowing/cmd"

func main() {
	cmd.Execute()
}
