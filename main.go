package main

import "github.com/ValentinKolb/anyKV/cmd"

func main() {
	cmd.Execute()
}
