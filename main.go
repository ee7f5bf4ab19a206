/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/microseq/bacflow/cmd"

func main() {
	cmd.Execute()
}
