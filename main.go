package main

import "github.com/suraksha-app/suraksha/cmd"

func main() {
	cmd.Execute()
}
