package main

import "github.com/repowatch/repowatch/cmd/repowatch"

func main() { repowatch.Execute() }
