// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/tokenfs/cmd/tokenfs/cmd"
)

func main() {
	cmd.Execute()
}
