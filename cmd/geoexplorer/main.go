package main

import "github.com/MeKo-Tech/geoexplorer/internal/cmd"

func main() {
	cmd.Execute()
}
