package main

import "github.com/MrBlankCoding/StockDashboard/internal/cli"

func main() {
	cli.Execute()
}
