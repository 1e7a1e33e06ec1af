package main

import "github.com/aselya-coder/PraktisiMengajar/cmd"

func main() {
	cmd.Execute()
}
