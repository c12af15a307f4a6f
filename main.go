package main

import (
	"os"

	"github.com/HGFantasy/TPF2-Timetables-sub001/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
