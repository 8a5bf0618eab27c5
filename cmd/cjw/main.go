package main

import "cjw/cmd/cjw/root"

func main() {
	root.Execute()
}
