package main

import "github.com/jmehdipour/crm-analytics/cmd"

func main() {
	cmd.Execute()
}
