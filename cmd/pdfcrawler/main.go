package main

import (
	cmd "github.com/rohmanhakim/pdfcrawler/internal/cli"
)

func main() {
	cmd.Execute()
}
