/*
Copyright © 2026 Paulo Suderio
*/
package main

import "github.com/suderio/scopedsl/cmd"

func main() {
	cmd.Execute()
}
