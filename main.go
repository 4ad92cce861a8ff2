/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/qrgate/portal/cmd"

func main() {
	cmd.Execute()
}
