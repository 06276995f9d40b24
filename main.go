package main

import "github.com/ValentinKolb/privlock/cmd"

func main() {
	cmd.Execute()
}
