package main

import "github.com/oshokin/section-installer/cmd/section-installer/cmd"

func main() {
	cmd.Execute()
}
