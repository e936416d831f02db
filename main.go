// Package main is the entry point for the subday subscription tracker.
package main

import "gitlab.com/yelinaung/subday/cmd"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.Execute(cmd.BuildInfo{Version: version, Commit: commit, Date: date})
}
