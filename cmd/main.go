package main

import "github.com/charleschow/ns-market/internal/process"

func main() {
	process.Run(process.Options{})
}
