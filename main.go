package main

import (
	"CadenzaFM/cmd"
)

func main() {
	cmd.Execute()
}
